// Package extract recovers a structured reply from a raw model completion.
// The generation provider is not guaranteed to emit well-formed JSON, so
// recovery is an ordered list of parser strategies; the first one that
// succeeds wins, and the final strategy always succeeds. The cascade trades
// strictness for availability.
package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/omnitech/supportagent/pkg/model"
	"github.com/omnitech/supportagent/pkg/utils/logging"
)

const (
	fallbackTruncate   = 500
	fallbackConfidence = 0.6
)

// Strategy attempts to recover a reply from raw completion text
type Strategy interface {
	Name() string
	Extract(raw string) (*model.Reply, bool)
}

// Strategies returns the recovery cascade in evaluation order
func Strategies() []Strategy {
	return []Strategy{
		directJSON{},
		fencedBlock{},
		bareObject{},
		fallback{},
	}
}

// Extract runs the cascade over the raw text. It always returns a reply
// with a non-empty response, a normalized action and a confidence in [0,1].
func Extract(ctx context.Context, raw string) *model.Reply {
	for _, s := range Strategies() {
		if reply, ok := s.Extract(raw); ok {
			reply.Clamp()
			logging.From(ctx).Debug("reply extracted", "strategy", s.Name())
			return reply
		}
	}

	// Unreachable: the fallback strategy accepts any input
	return &model.Reply{
		Response:     strings.TrimSpace(raw),
		ActionNeeded: model.ActionNone,
		Confidence:   fallbackConfidence,
	}
}

// truncateRunes caps s at limit characters without splitting a rune
func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// parseReply decodes a JSON object into a reply. It rejects objects that
// do not carry a response field: a JSON object without one (a tool echo,
// a bare config blob) is not an answer.
func parseReply(data string) (*model.Reply, bool) {
	var reply model.Reply
	if err := json.Unmarshal([]byte(data), &reply); err != nil {
		return nil, false
	}
	if reply.Response == "" {
		return nil, false
	}
	return &reply, true
}

// directJSON accepts completions that are a JSON object as a whole
type directJSON struct{}

func (directJSON) Name() string { return "direct_json" }

func (directJSON) Extract(raw string) (*model.Reply, bool) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return nil, false
	}
	return parseReply(trimmed)
}

// fencedBlock finds a JSON object inside a triple-backtick code fence,
// optionally tagged "json"
type fencedBlock struct{}

var fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

func (fencedBlock) Name() string { return "fenced_block" }

func (fencedBlock) Extract(raw string) (*model.Reply, bool) {
	m := fencedRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	return parseReply(m[1])
}

// bareObject finds a single-level object substring carrying a "response"
// key anywhere in the text
type bareObject struct{}

var bareObjectRe = regexp.MustCompile(`(?s)\{[^{}]*"response"[^{}]*\}`)

func (bareObject) Name() string { return "bare_object" }

func (bareObject) Extract(raw string) (*model.Reply, bool) {
	m := bareObjectRe.FindString(raw)
	if m == "" {
		return nil, false
	}
	return parseReply(m)
}

// fallback strips fence markers and wraps the remaining text verbatim. It
// always succeeds.
type fallback struct{}

var fenceMarkerRe = regexp.MustCompile("```(?:json)?")

func (fallback) Name() string { return "fallback" }

func (fallback) Extract(raw string) (*model.Reply, bool) {
	clean := strings.TrimSpace(fenceMarkerRe.ReplaceAllString(raw, ""))
	clean = truncateRunes(clean, fallbackTruncate)
	return &model.Reply{
		Response:     clean,
		ActionNeeded: model.ActionNone,
		Confidence:   fallbackConfidence,
	}, true
}
