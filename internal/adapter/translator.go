package adapter

import (
	"log/slog"
	"strings"
)

// FallbackPrompt replaces an empty prompt when at least one attachment was
// decoded. This is the only synthesized-content rule.
const FallbackPrompt = "Describe the image(s)."

// CanonicalRequest is the normalized (prompt, attachments) pair derived from
// a protocol-level chat request. It lives for exactly one request.
type CanonicalRequest struct {
	Prompt      string
	Attachments Attachments
}

// Translator flattens a multi-message, multi-part chat request into a
// canonical prompt and ordered attachment list.
type Translator struct {
	codec  *AttachmentCodec
	logger *slog.Logger
}

// NewTranslator creates a Translator backed by the given codec.
func NewTranslator(codec *AttachmentCodec, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{codec: codec, logger: logger}
}

// Translate walks the messages in order. String content is appended verbatim
// (messages that never carried a content key contribute nothing); part lists
// are iterated in order, text parts join the prompt fragments and
// image parts are decoded to temporary files. Unknown part tags and parts
// that fail to decode are dropped without aborting the request. Roles are
// passed through unchecked: the backend is stateless per call, so no
// conversation history is reconstructed here.
//
// The attachments in the returned CanonicalRequest are owned by the caller
// and must be released when the request completes.
func (t *Translator) Translate(messages []Message) CanonicalRequest {
	var fragments []string
	var attachments Attachments

	for _, msg := range messages {
		if msg.Content.Parts == nil {
			// A message that never carried a content key is skipped; an
			// explicit empty string still joins verbatim.
			if msg.Content.Text == "" && !msg.Content.provided {
				continue
			}
			fragments = append(fragments, msg.Content.Text)
			continue
		}

		for _, part := range msg.Content.Parts {
			switch part.Type {
			case PartTypeText:
				fragments = append(fragments, part.Text)

			case PartTypeImageURL:
				if part.ImageURL == nil {
					t.logger.Warn("dropping image part without image_url object")
					continue
				}
				path, err := t.codec.Decode(part.ImageURL.URL)
				if err != nil {
					// Per-part drop policy: the request proceeds without it.
					t.logger.Warn("dropping undecodable image part",
						slog.String("error", err.Error()),
					)
					continue
				}
				attachments = append(attachments, path)

			default:
				t.logger.Debug("skipping unrecognized content part",
					slog.String("type", part.Type),
				)
			}
		}
	}

	prompt := strings.Join(fragments, "\n")
	if prompt == "" && len(attachments) > 0 {
		prompt = FallbackPrompt
	}

	return CanonicalRequest{Prompt: prompt, Attachments: attachments}
}
