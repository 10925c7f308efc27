package adapter

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestMessageContent_UnmarshalString(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"role":"user","content":"hello"}`), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if msg.Content.Text != "hello" {
		t.Errorf("Text = %q, want hello", msg.Content.Text)
	}
	if msg.Content.Parts != nil {
		t.Errorf("Parts = %v, want nil", msg.Content.Parts)
	}
}

func TestMessageContent_UnmarshalParts(t *testing.T) {
	raw := `{"role":"user","content":[
		{"type":"text","text":"look at this"},
		{"type":"image_url","image_url":{"url":"data:image/png;base64,aGk="}},
		{"type":"video_url","video_url":{"url":"ignored"}}
	]}`

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(msg.Content.Parts) != 3 {
		t.Fatalf("len(Parts) = %d, want 3", len(msg.Content.Parts))
	}
	if msg.Content.Parts[0].Type != PartTypeText || msg.Content.Parts[0].Text != "look at this" {
		t.Errorf("part 0 = %+v", msg.Content.Parts[0])
	}
	if msg.Content.Parts[1].Type != PartTypeImageURL || msg.Content.Parts[1].ImageURL == nil {
		t.Errorf("part 1 = %+v", msg.Content.Parts[1])
	}
	// Unknown tags survive unmarshaling; the translator is what drops them.
	if msg.Content.Parts[2].Type != "video_url" {
		t.Errorf("part 2 type = %q, want video_url", msg.Content.Parts[2].Type)
	}
}

func TestMessageContent_UnmarshalRejectsOtherShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"number", `{"role":"user","content":42}`},
		{"object", `{"role":"user","content":{"text":"x"}}`},
		{"bool", `{"role":"user","content":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			err := json.Unmarshal([]byte(tt.raw), &msg)
			if err == nil {
				t.Fatal("Unmarshal() error = nil, want *ValidationError")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("error type = %T, want *ValidationError", err)
			}
		})
	}
}

func TestMessageContent_MarshalRoundTrip(t *testing.T) {
	in := Message{Role: "user", Content: MessageContent{Parts: []ContentPart{
		{Type: PartTypeText, Text: "hi"},
	}}}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(out.Content.Parts) != 1 || out.Content.Parts[0].Text != "hi" {
		t.Errorf("round trip mismatch: %+v", out.Content)
	}
}
