package adapter

import (
	"encoding/base64"
	"log/slog"
	"os"
	"strings"
)

const dataURLPrefix = "data:image/"

// AttachmentCodec decodes inline base64 images into temporary files.
// The returned paths are owned by the caller for the remainder of the
// request; the codec itself retains no reference.
type AttachmentCodec struct {
	dir string
}

// NewAttachmentCodec creates a codec that writes decoded files into dir.
// An empty dir means the OS default temp directory.
func NewAttachmentCodec(dir string) *AttachmentCodec {
	return &AttachmentCodec{dir: dir}
}

// Decode writes the base64 payload of a data URL into a freshly created,
// uniquely named temporary file whose extension is the MIME subtype, and
// returns the file's path. A malformed prefix or payload yields a
// *FileDecodeError and no file.
func (a *AttachmentCodec) Decode(dataURL string) (string, error) {
	if !strings.HasPrefix(dataURL, dataURLPrefix) {
		return "", &FileDecodeError{Reason: "url is not an image data URL"}
	}

	header, encoded, ok := strings.Cut(dataURL, ",")
	if !ok {
		return "", &FileDecodeError{Reason: "data URL has no payload separator"}
	}

	// header is "data:image/<subtype>;base64" (or bare "data:image/<subtype>")
	ext := strings.TrimPrefix(header, dataURLPrefix)
	if i := strings.Index(ext, ";"); i >= 0 {
		ext = ext[:i]
	}
	if ext == "" {
		return "", &FileDecodeError{Reason: "data URL has no MIME subtype"}
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", &FileDecodeError{Reason: "invalid base64 payload", Err: err}
	}

	f, err := os.CreateTemp(a.dir, "attachment-*."+ext)
	if err != nil {
		return "", &FileDecodeError{Reason: "failed to create temporary file", Err: err}
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", &FileDecodeError{Reason: "failed to write temporary file", Err: err}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", &FileDecodeError{Reason: "failed to close temporary file", Err: err}
	}

	return f.Name(), nil
}

// Attachments is the set of temporary files created for one request.
// Release must run on every exit path; the handler installs it with defer
// before the backend is invoked.
type Attachments []string

// Release deletes every attachment exactly once. Deletion failures are
// logged and otherwise ignored; they never change the response already sent.
func (a Attachments) Release(logger *slog.Logger) {
	for _, path := range a {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logger.Warn("failed to remove temporary attachment",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}
}
