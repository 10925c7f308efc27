package gemini

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"

	http "github.com/bogdanfinn/fhttp"
)

const (
	endpointUpload = "https://content-push.googleapis.com/upload"
	uploadPushID   = "feeds/mcudyrk2a4khkz"
)

// uploadFile pushes attachment bytes to the content-push endpoint and returns
// the opaque file identifier the generate payload references.
func (c *Client) uploadFile(ctx context.Context, data []byte, filename string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointUpload, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Push-ID", uploadPushID)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Origin", "https://gemini.google.com")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload failed with status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
