package adapter

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ThoughtOpenTag and ThoughtCloseTag delimit the reasoning trace inside the
// combined content, ahead of the final answer.
const (
	ThoughtOpenTag  = "<thought>"
	ThoughtCloseTag = "</thought>"
)

// DoneSentinel terminates every SSE stream.
const DoneSentinel = "[DONE]"

const chunkObject = "chat.completion.chunk"

// Finish reasons reported to clients.
const (
	FinishStop  = "stop"
	FinishError = "error"
)

// CombineContent folds a backend candidate's reasoning trace and final answer
// into the single unit of content delivered to the client. A non-empty
// thoughts field is collapsed to trimmed, non-blank lines joined by newlines
// and wrapped in a thought tag preceding the answer; the answer itself is
// appended verbatim.
func CombineContent(thoughts, text string) string {
	var b strings.Builder

	if thoughts != "" {
		var lines []string
		for _, line := range strings.Split(thoughts, "\n") {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				lines = append(lines, trimmed)
			}
		}
		if len(lines) > 0 {
			b.WriteString(ThoughtOpenTag)
			b.WriteString(strings.Join(lines, "\n"))
			b.WriteString(ThoughtCloseTag)
		}
	}

	b.WriteString(text)
	return b.String()
}

// NewCompletionID generates a request-scoped completion identifier.
func NewCompletionID() string {
	return fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
}

// Encoder renders backend replies (or failures) for one request. The same
// identifier and timestamp are stamped on every frame of the request.
type Encoder struct {
	id      string
	created int64
	model   string
}

// NewEncoder creates an Encoder for one completion request.
func NewEncoder(model string) *Encoder {
	return &Encoder{
		id:      NewCompletionID(),
		created: time.Now().Unix(),
		model:   model,
	}
}

// Response builds the non-streaming envelope: one choice, role assistant,
// finish_reason "stop", zeroed usage.
func (e *Encoder) Response(content string) ChatResponse {
	return ChatResponse{
		ID:      e.id,
		Object:  "chat.completion",
		Created: e.created,
		Model:   e.model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      ChatMessage{Role: "assistant", Content: content},
				FinishReason: FinishStop,
			},
		},
		Usage: Usage{},
	}
}

func (e *Encoder) chunk(delta DeltaMessage, finishReason *string) StreamResponse {
	return StreamResponse{
		ID:      e.id,
		Object:  chunkObject,
		Created: e.created,
		Model:   e.model,
		Choices: []StreamChoice{
			{Index: 0, Delta: delta, FinishReason: finishReason},
		},
	}
}

// streamState tracks the fixed event sequence of one streaming response.
// No state is revisited and no retries occur inside this machine.
type streamState int

const (
	stateInit streamState = iota
	stateAwaitBackend
	stateRoleSent
	stateContentSent
	stateFinishSent
	stateErrorSent
	stateDone
)

// StreamWriter frames a single complete backend reply as the fixed SSE chunk
// sequence. Commit must run before the backend call so that a failure raised
// mid-stream is absorbed into the wire protocol instead of the transport
// error path.
type StreamWriter struct {
	w       io.Writer
	flusher http.Flusher
	enc     *Encoder
	state   streamState
}

// NewStreamWriter wraps a response writer for SSE framing. The writer should
// implement http.Flusher; if it does not, output is framed but not flushed
// per event.
func NewStreamWriter(w io.Writer, enc *Encoder) *StreamWriter {
	sw := &StreamWriter{w: w, enc: enc, state: stateInit}
	if f, ok := w.(http.Flusher); ok {
		sw.flusher = f
	}
	return sw
}

// Commit marks the response headers as sent. From this point every failure
// must be delivered in-band.
func (s *StreamWriter) Commit() {
	if s.state != stateInit {
		return
	}
	s.state = stateAwaitBackend
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

// WriteReply emits the success sequence: RoleAnnounce, ContentChunk (skipped
// when content is empty), Finish("stop"), then the [DONE] sentinel.
func (s *StreamWriter) WriteReply(content string) error {
	if s.state != stateAwaitBackend {
		return fmt.Errorf("stream writer: reply after state %d", s.state)
	}

	if err := s.writeEvent(s.enc.chunk(DeltaMessage{Role: "assistant"}, nil)); err != nil {
		return err
	}
	s.state = stateRoleSent

	if content != "" {
		if err := s.writeEvent(s.enc.chunk(DeltaMessage{Content: content}, nil)); err != nil {
			return err
		}
	}
	s.state = stateContentSent

	stop := FinishStop
	if err := s.writeEvent(s.enc.chunk(DeltaMessage{}, &stop)); err != nil {
		return err
	}
	s.state = stateFinishSent

	return s.writeDone()
}

// WriteError emits the failure sequence: one error chunk whose delta carries
// the rendered failure message, finish_reason "error", then [DONE].
func (s *StreamWriter) WriteError(err error) error {
	if s.state != stateAwaitBackend {
		return fmt.Errorf("stream writer: error after state %d", s.state)
	}

	reason := FinishError
	chunk := s.enc.chunk(DeltaMessage{Content: "Error: " + err.Error()}, &reason)
	if werr := s.writeEvent(chunk); werr != nil {
		return werr
	}
	s.state = stateErrorSent

	return s.writeDone()
}

func (s *StreamWriter) writeEvent(chunk StreamResponse) error {
	payload, err := json.Marshal(chunk)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

func (s *StreamWriter) writeDone() error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", DoneSentinel); err != nil {
		return err
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	s.state = stateDone
	return nil
}
