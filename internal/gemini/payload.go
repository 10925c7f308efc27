package gemini

import (
	"fmt"
	"math/rand"

	"github.com/tidwall/sjson"
)

// FileData identifies one uploaded attachment inside a generate payload.
type FileData struct {
	URL      string
	FileName string
}

// buildGeneratePayload constructs the f.req form parameter of a
// StreamGenerate call. The wire shape is the frontend's nested positional
// JSON: an outer envelope whose second element is itself a JSON-encoded
// array of [message, null, metadata, ...]. Each request opens a fresh
// conversation turn, so the metadata slot stays null.
func buildGeneratePayload(prompt string, files []FileData) string {
	imagesJSON := `[]`
	for i, f := range files {
		urlArr := `[]`
		urlArr, _ = sjson.Set(urlArr, "0", f.URL)
		urlArr, _ = sjson.Set(urlArr, "1", 1)

		item := `[]`
		item, _ = sjson.SetRaw(item, "0", urlArr)
		item, _ = sjson.Set(item, "1", f.FileName)

		imagesJSON, _ = sjson.SetRaw(imagesJSON, fmt.Sprintf("%d", i), item)
	}

	msg := `[]`
	msg, _ = sjson.Set(msg, "0", prompt)
	msg, _ = sjson.Set(msg, "1", 0)
	msg, _ = sjson.Set(msg, "2", nil)
	msg, _ = sjson.SetRaw(msg, "3", imagesJSON)
	msg, _ = sjson.Set(msg, "4", nil)
	msg, _ = sjson.Set(msg, "5", nil)
	msg, _ = sjson.Set(msg, "6", nil)

	inner := `[]`
	inner, _ = sjson.SetRaw(inner, "0", msg)
	inner, _ = sjson.Set(inner, "1", nil)
	inner, _ = sjson.Set(inner, "2", nil)
	for i := 3; i < 7; i++ {
		inner, _ = sjson.Set(inner, fmt.Sprintf("%d", i), nil)
	}
	// Index 7 enables snapshot streaming: each frame carries the full text so
	// far, and the last frame carries the complete reply.
	inner, _ = sjson.Set(inner, "7", 1)

	outer := `[null, "", null, null]`
	outer, _ = sjson.Set(outer, "1", inner)

	return outer
}

// newReqID seeds the per-session request counter the frontend increments on
// every call.
func newReqID() int {
	return rand.Intn(100000) + 100000
}
