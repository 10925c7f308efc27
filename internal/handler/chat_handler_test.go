package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/Mag1cFall/Gemini-Web2API/internal/adapter"
	"github.com/Mag1cFall/Gemini-Web2API/internal/gemini"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeSession records the last call and returns a canned reply or error.
type fakeSession struct {
	reply gemini.Reply
	err   error

	gotPrompt      string
	gotAttachments []string
	gotModel       string
}

func (f *fakeSession) Send(_ context.Context, prompt string, attachmentPaths []string, model string) (gemini.Reply, error) {
	f.gotPrompt = prompt
	f.gotAttachments = attachmentPaths
	f.gotModel = model
	if f.err != nil {
		return gemini.Reply{}, f.err
	}
	return f.reply, nil
}

func textReply(thoughts, text string) gemini.Reply {
	return gemini.Reply{Candidates: []gemini.Candidate{{Thoughts: thoughts, Text: text}}}
}

func newTestRouter(h *ChatHandler) *gin.Engine {
	router := gin.New()
	router.GET("/", h.HandleRoot)
	v1 := router.Group("/v1")
	v1.POST("/chat/completions", h.HandleChatCompletion)
	v1.GET("/models", h.HandleModels)
	return router
}

func postCompletion(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeErrorEnvelope(t *testing.T, body []byte) (message, errType string) {
	t.Helper()
	var envelope struct {
		Error struct {
			Message string  `json:"message"`
			Type    string  `json:"type"`
			Param   *string `json:"param"`
			Code    *string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("error envelope: %v", err)
	}
	return envelope.Error.Message, envelope.Error.Type
}

func TestHandleChatCompletion_BackendNotReady(t *testing.T) {
	tests := []struct {
		name    string
		backend *Backend
	}{
		{"uninitialized", NewUninitializedBackend()},
		{"failed", NewFailedBackend()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(NewChatHandler(tt.backend))

			w := postCompletion(router, `{"model":"gemini-2.5-flash","messages":[{"role":"user","content":"hi"}]}`)

			if w.Code != http.StatusServiceUnavailable {
				t.Errorf("status = %d, want 503", w.Code)
			}
			_, errType := decodeErrorEnvelope(t, w.Body.Bytes())
			if errType != "server_error" {
				t.Errorf("error type = %q, want server_error", errType)
			}
		})
	}
}

func TestHandleChatCompletion_InvalidBody(t *testing.T) {
	router := newTestRouter(NewChatHandler(NewReadyBackend(&fakeSession{})))

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{"},
		{"content wrong shape", `{"model":"m","messages":[{"role":"user","content":42}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postCompletion(router, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			_, errType := decodeErrorEnvelope(t, w.Body.Bytes())
			if errType != "invalid_request_error" {
				t.Errorf("error type = %q, want invalid_request_error", errType)
			}
		})
	}
}

func TestHandleChatCompletion_NonStreamSuccess(t *testing.T) {
	session := &fakeSession{reply: textReply("step one\nstep two", "final answer")}
	router := newTestRouter(NewChatHandler(NewReadyBackend(session)))

	w := postCompletion(router, `{"model":"gemini-2.5-pro","messages":[
		{"role":"user","content":"A"},
		{"role":"user","content":"B"}
	]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}

	var resp adapter.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response: %v", err)
	}

	if session.gotPrompt != "A\nB" {
		t.Errorf("prompt sent to backend = %q, want %q", session.gotPrompt, "A\nB")
	}
	if session.gotModel != "gemini-2.5-pro" {
		t.Errorf("model sent to backend = %q", session.gotModel)
	}
	if resp.Model != "gemini-2.5-pro" {
		t.Errorf("Model = %q, want echo of request model", resp.Model)
	}

	want := "<thought>step one\nstep two</thought>final answer"
	if got := resp.Choices[0].Message.Content; got != want {
		t.Errorf("Content = %q, want %q", got, want)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("FinishReason = %q, want stop", resp.Choices[0].FinishReason)
	}
	if resp.Usage.TotalTokens != 0 || resp.Usage.PromptTokens != 0 || resp.Usage.CompletionTokens != 0 {
		t.Errorf("Usage = %+v, want all zero", resp.Usage)
	}
}

func TestHandleChatCompletion_BackendFailure(t *testing.T) {
	session := &fakeSession{err: errors.New("stream generate: status 500")}
	router := newTestRouter(NewChatHandler(NewReadyBackend(session)))

	w := postCompletion(router, `{"model":"gemini-2.5-flash","messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	message, errType := decodeErrorEnvelope(t, w.Body.Bytes())
	if errType != "server_error" {
		t.Errorf("error type = %q, want server_error", errType)
	}
	if !strings.Contains(message, "stream generate") {
		t.Errorf("message = %q, want backend error detail", message)
	}
}

// streamPayloads extracts the data payloads of an SSE body.
func streamPayloads(t *testing.T, body string) []string {
	t.Helper()
	var payloads []string
	for _, event := range strings.Split(body, "\n\n") {
		if event == "" {
			continue
		}
		if !strings.HasPrefix(event, "data: ") {
			t.Fatalf("event %q lacks data: prefix", event)
		}
		payloads = append(payloads, strings.TrimPrefix(event, "data: "))
	}
	return payloads
}

func TestHandleChatCompletion_StreamSuccess(t *testing.T) {
	session := &fakeSession{reply: textReply("", "streamed answer")}
	router := newTestRouter(NewChatHandler(NewReadyBackend(session)))

	w := postCompletion(router, `{"model":"gemini-2.5-flash","stream":true,"messages":[{"role":"user","content":"hi"}]}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	payloads := streamPayloads(t, w.Body.String())
	if len(payloads) != 4 {
		t.Fatalf("len(payloads) = %d, want 4 (role, content, finish, done); body = %q", len(payloads), w.Body.String())
	}

	var role, content, finish adapter.StreamResponse
	for i, dst := range []*adapter.StreamResponse{&role, &content, &finish} {
		if err := json.Unmarshal([]byte(payloads[i]), dst); err != nil {
			t.Fatalf("payload %d: %v", i, err)
		}
	}

	if role.Choices[0].Delta.Role != "assistant" {
		t.Errorf("first chunk role = %q, want assistant", role.Choices[0].Delta.Role)
	}
	if content.Choices[0].Delta.Content != "streamed answer" {
		t.Errorf("second chunk content = %q", content.Choices[0].Delta.Content)
	}
	if finish.Choices[0].FinishReason == nil || *finish.Choices[0].FinishReason != "stop" {
		t.Errorf("third chunk finish_reason = %v, want stop", finish.Choices[0].FinishReason)
	}
	if payloads[3] != adapter.DoneSentinel {
		t.Errorf("last payload = %q, want %q", payloads[3], adapter.DoneSentinel)
	}
}

func TestHandleChatCompletion_StreamBackendFailure(t *testing.T) {
	session := &fakeSession{err: errors.New("cookies likely expired")}
	router := newTestRouter(NewChatHandler(NewReadyBackend(session)))

	w := postCompletion(router, `{"model":"gemini-2.5-flash","stream":true,"messages":[{"role":"user","content":"hi"}]}`)

	// Headers were committed before the backend call, so the failure arrives
	// in-band under the already-sent 200.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	payloads := streamPayloads(t, w.Body.String())
	if len(payloads) != 2 {
		t.Fatalf("len(payloads) = %d, want 2 (error chunk, done)", len(payloads))
	}

	var chunk adapter.StreamResponse
	if err := json.Unmarshal([]byte(payloads[0]), &chunk); err != nil {
		t.Fatalf("error chunk: %v", err)
	}
	if chunk.Choices[0].Delta.Content != "Error: cookies likely expired" {
		t.Errorf("error chunk content = %q", chunk.Choices[0].Delta.Content)
	}
	if chunk.Choices[0].FinishReason == nil || *chunk.Choices[0].FinishReason != "error" {
		t.Errorf("error chunk finish_reason = %v, want error", chunk.Choices[0].FinishReason)
	}
	if payloads[1] != adapter.DoneSentinel {
		t.Errorf("last payload = %q, want %q", payloads[1], adapter.DoneSentinel)
	}
}

func TestHandleChatCompletion_AttachmentsReleasedAfterRequest(t *testing.T) {
	dir := t.TempDir()
	translator := adapter.NewTranslator(adapter.NewAttachmentCodec(dir), slog.Default())

	imageURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("pixels"))
	body := `{"model":"gemini-2.5-flash","messages":[{"role":"user","content":[
		{"type":"text","text":"describe"},
		{"type":"image_url","image_url":{"url":"` + imageURL + `"}}
	]}]}`

	tests := []struct {
		name    string
		session *fakeSession
	}{
		{"after success", &fakeSession{reply: textReply("", "a picture")}},
		{"after backend failure", &fakeSession{err: errors.New("upload rejected")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(NewChatHandler(NewReadyBackend(tt.session), WithTranslator(translator)))

			postCompletion(router, body)

			if len(tt.session.gotAttachments) != 1 {
				t.Fatalf("backend received %d attachments, want 1", len(tt.session.gotAttachments))
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatalf("ReadDir: %v", err)
			}
			if len(entries) != 0 {
				t.Errorf("%d temp files remain after request, want 0", len(entries))
			}
		})
	}
}

func TestHandleModels(t *testing.T) {
	router := newTestRouter(NewChatHandler(NewUninitializedBackend()))

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// The catalog is static; listing works even without a ready backend.
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var list adapter.ModelList
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("model list: %v", err)
	}
	if list.Object != "list" {
		t.Errorf("Object = %q, want list", list.Object)
	}
	if len(list.Data) != len(gemini.Catalog()) {
		t.Errorf("len(Data) = %d, want %d", len(list.Data), len(gemini.Catalog()))
	}
	for _, card := range list.Data {
		if card.ID == "unspecified" {
			t.Error("model list contains the unspecified sentinel")
		}
		if card.Object != "model" || card.OwnedBy != "Google" {
			t.Errorf("card = %+v", card)
		}
	}
}

func TestHandleRoot_ReportsBackendState(t *testing.T) {
	tests := []struct {
		name    string
		backend *Backend
		want    string
	}{
		{"ready", NewReadyBackend(&fakeSession{}), "ready"},
		{"uninitialized", NewUninitializedBackend(), "uninitialized"},
		{"failed", NewFailedBackend(), "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(NewChatHandler(tt.backend))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", w.Code)
			}
			var body struct {
				Backend string `json:"backend"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("body: %v", err)
			}
			if body.Backend != tt.want {
				t.Errorf("backend = %q, want %q", body.Backend, tt.want)
			}
		})
	}
}

func TestBackend_Session(t *testing.T) {
	if _, err := NewUninitializedBackend().Session(); !errors.Is(err, adapter.ErrBackendUnavailable) {
		t.Errorf("uninitialized Session() error = %v, want ErrBackendUnavailable", err)
	}
	if _, err := NewFailedBackend().Session(); !errors.Is(err, adapter.ErrBackendUnavailable) {
		t.Errorf("failed Session() error = %v, want ErrBackendUnavailable", err)
	}

	want := &fakeSession{}
	got, err := NewReadyBackend(want).Session()
	if err != nil {
		t.Fatalf("ready Session() error = %v", err)
	}
	if got != Session(want) {
		t.Error("ready Session() did not return the wrapped session")
	}
}
