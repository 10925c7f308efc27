package gemini

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
)

// Reply is the parsed result of one generate call.
type Reply struct {
	Candidates []Candidate
}

// Candidate is one backend-proposed answer. Thoughts carries the reasoning
// trace when the model exposes one; Text is the final answer.
type Candidate struct {
	Thoughts string
	Text     string
}

// First returns the first candidate. Only the first is ever consulted by the
// adapter; any others are ignored.
func (r Reply) First() Candidate {
	if len(r.Candidates) == 0 {
		return Candidate{}
	}
	return r.Candidates[0]
}

// ErrNoCandidates is returned when a generate response parses but carries no
// answer, which usually means the cookies went stale.
var ErrNoCandidates = errors.New("no candidates in generate response")

// markdown escapes the frontend inserts into generated text
var unescaper = strings.NewReplacer(
	`\<`, `<`,
	`\>`, `>`,
	`\_`, `_`,
	`\[`, `[`,
	`\]`, `]`,
)

// parseReply extracts the final snapshot from a StreamGenerate body.
//
// The body is batchexecute framing: an anti-hijacking prefix ")]}'" followed
// by newline-delimited JSON arrays of envelopes. Each envelope's third
// element is a JSON-encoded string; inside it, index 4 holds the candidate
// list, with candidate[1][0] the answer text and candidate[37][0][0] the
// reasoning trace. Snapshot streaming repeats cumulative text per frame, so
// the longest snapshot per candidate wins.
func parseReply(body []byte) (Reply, error) {
	snapshots := make(map[int]Candidate)
	maxIndex := -1

	for _, line := range strings.Split(string(body), "\n") {
		line = strings.TrimPrefix(line, ")]}'")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		outer := gjson.Parse(line)
		if !outer.IsArray() {
			continue
		}

		outer.ForEach(func(_, envelope gjson.Result) bool {
			dataStr := envelope.Get("2").String()
			if dataStr == "" {
				return true
			}

			candidates := gjson.Parse(dataStr).Get("4")
			if !candidates.IsArray() {
				return true
			}

			idx := 0
			candidates.ForEach(func(_, candidate gjson.Result) bool {
				text := candidate.Get("1.0").String()
				thoughts := candidate.Get("37.0.0").String()

				prev := snapshots[idx]
				if len(text) >= len(prev.Text) {
					prev.Text = text
				}
				if len(thoughts) >= len(prev.Thoughts) {
					prev.Thoughts = thoughts
				}
				snapshots[idx] = prev

				if idx > maxIndex {
					maxIndex = idx
				}
				idx++
				return true
			})
			return true
		})
	}

	if maxIndex < 0 {
		return Reply{}, ErrNoCandidates
	}

	reply := Reply{Candidates: make([]Candidate, 0, maxIndex+1)}
	for i := 0; i <= maxIndex; i++ {
		c := snapshots[i]
		c.Text = unescaper.Replace(c.Text)
		reply.Candidates = append(reply.Candidates, c)
	}
	return reply, nil
}
