package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mag1cFall/Gemini-Web2API/internal/adapter"
	"github.com/Mag1cFall/Gemini-Web2API/internal/gemini"
)

// ChatHandler serves the OpenAI-compatible endpoints over one backend handle.
type ChatHandler struct {
	backend    *Backend
	translator *adapter.Translator
	logger     *slog.Logger
}

// ChatHandlerOption is a functional option for configuring ChatHandler.
type ChatHandlerOption func(*ChatHandler)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ChatHandlerOption {
	return func(h *ChatHandler) {
		h.logger = logger
	}
}

// WithTranslator sets a custom request translator.
func WithTranslator(t *adapter.Translator) ChatHandlerOption {
	return func(h *ChatHandler) {
		h.translator = t
	}
}

// NewChatHandler creates a ChatHandler over the given backend handle.
func NewChatHandler(backend *Backend, opts ...ChatHandlerOption) *ChatHandler {
	h := &ChatHandler{
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.translator == nil {
		h.translator = adapter.NewTranslator(adapter.NewAttachmentCodec(""), h.logger)
	}
	return h
}

// HandleChatCompletion handles POST /v1/chat/completions.
func (h *ChatHandler) HandleChatCompletion(c *gin.Context) {
	session, err := h.backend.Session()
	if err != nil {
		h.sendError(c, http.StatusServiceUnavailable, "server_error",
			"Gemini session is not initialized. Check the server logs and refresh the cookies.")
		return
	}

	var req adapter.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.sendError(c, http.StatusBadRequest, "invalid_request_error", "Invalid request body: "+err.Error())
		return
	}

	canonical := h.translator.Translate(req.Messages)

	// Scoped release: the temporary files are gone on every exit path,
	// including a backend failure or a client disconnect mid-stream.
	defer canonical.Attachments.Release(h.logger)

	if req.Stream {
		h.streamCompletion(c, session, req.Model, canonical)
		return
	}
	h.completion(c, session, req.Model, canonical)
}

// completion renders the single JSON response object.
func (h *ChatHandler) completion(c *gin.Context, session Session, model string, canonical adapter.CanonicalRequest) {
	enc := adapter.NewEncoder(model)

	reply, err := session.Send(c.Request.Context(), canonical.Prompt, canonical.Attachments, model)
	if err != nil {
		callErr := &adapter.BackendCallError{Err: err}
		h.logger.Error("backend call failed",
			slog.String("model", model),
			slog.String("error", err.Error()),
		)
		h.sendError(c, http.StatusInternalServerError, "server_error", callErr.Error())
		return
	}

	candidate := reply.First()
	content := adapter.CombineContent(candidate.Thoughts, candidate.Text)
	c.JSON(http.StatusOK, enc.Response(content))
}

// streamCompletion renders the synthetic SSE sequence. Headers are committed
// before the backend call, so a failure raised from that point on is absorbed
// into the stream as an error chunk and the stream still terminates with the
// [DONE] sentinel.
func (h *ChatHandler) streamCompletion(c *gin.Context, session Session, model string, canonical adapter.CanonicalRequest) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	enc := adapter.NewEncoder(model)
	stream := adapter.NewStreamWriter(c.Writer, enc)
	stream.Commit()

	reply, err := session.Send(c.Request.Context(), canonical.Prompt, canonical.Attachments, model)
	if err != nil {
		h.logger.Error("backend call failed mid-stream",
			slog.String("model", model),
			slog.String("error", err.Error()),
		)
		if werr := stream.WriteError(err); werr != nil {
			h.logger.Warn("failed to write error chunk", slog.String("error", werr.Error()))
		}
		return
	}

	candidate := reply.First()
	content := adapter.CombineContent(candidate.Thoughts, candidate.Text)
	if werr := stream.WriteReply(content); werr != nil {
		// The client likely went away; cleanup still runs via the deferred
		// attachment release in the caller.
		h.logger.Warn("failed to write stream", slog.String("error", werr.Error()))
	}
}

// HandleModels handles GET /v1/models. It projects the static backend catalog,
// excluding the unspecified sentinel, with no backend call.
func (h *ChatHandler) HandleModels(c *gin.Context) {
	models := gemini.Catalog()
	created := time.Now().Unix()

	cards := make([]adapter.ModelCard, 0, len(models))
	for _, m := range models {
		cards = append(cards, adapter.ModelCard{
			ID:      m.Name,
			Object:  "model",
			Created: created,
			OwnedBy: "Google",
		})
	}

	c.JSON(http.StatusOK, adapter.ModelList{Object: "list", Data: cards})
}

// HandleRoot handles GET /, the unauthenticated liveness endpoint.
func (h *ChatHandler) HandleRoot(c *gin.Context) {
	status := "ready"
	switch h.backend.State() {
	case BackendUninitialized:
		status = "uninitialized"
	case BackendFailed:
		status = "failed"
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Gemini-Web2API is running. Post to /v1/chat/completions to use.",
		"backend": status,
	})
}

// sendError sends an error response in OpenAI-compatible format.
func (h *ChatHandler) sendError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"message": message,
			"type":    errType,
			"param":   nil,
			"code":    nil,
		},
	})
}
