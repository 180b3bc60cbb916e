package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/omnitech/supportagent/pkg/model"
	"github.com/omnitech/supportagent/pkg/utils/logging"
	"github.com/omnitech/supportagent/pkg/utils/ring"
)

const toolCallLogCap = 20

// Result is the tagged outcome of one gateway call. Exactly one of Err or
// a payload (Payload for JSON objects, Text otherwise) is meaningful;
// callers must check Err before reading fields.
type Result struct {
	Tool    string
	Payload map[string]any
	Text    string
	Elapsed time.Duration
	Err     error
}

// OK reports whether the call produced a usable payload
func (r *Result) OK() bool {
	return r.Err == nil
}

// Str returns a string payload field, or "" when absent or mistyped
func (r *Result) Str(key string) string {
	if r.Payload == nil {
		return ""
	}
	s, _ := r.Payload[key].(string)
	return s
}

// Num returns a numeric payload field, or 0 when absent or mistyped
func (r *Result) Num(key string) float64 {
	if r.Payload == nil {
		return 0
	}
	switch v := r.Payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Bool returns a boolean payload field, or false when absent or mistyped
func (r *Result) Bool(key string) bool {
	if r.Payload == nil {
		return false
	}
	b, _ := r.Payload[key].(bool)
	return b
}

// Strings returns a string-array payload field
func (r *Result) Strings(key string) []string {
	if r.Payload == nil {
		return nil
	}
	raw, _ := r.Payload[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Objects returns an object-array payload field
func (r *Result) Objects(key string) []map[string]any {
	if r.Payload == nil {
		return nil
	}
	raw, _ := r.Payload[key].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Gateway issues tool calls against the capability host. Every call is
// timed, validated against the tool's advertised input schema, logged into
// a bounded record buffer, and converted into a tagged Result; no failure
// propagates as a raise.
type Gateway struct {
	client  *Client
	records *ring.Buffer[model.ToolCallRecord]
}

// NewGateway creates a gateway over an established host session. A nil
// client yields a gateway whose calls all fail with ErrNotConnected.
func NewGateway(client *Client) *Gateway {
	return &Gateway{
		client:  client,
		records: ring.New[model.ToolCallRecord](toolCallLogCap),
	}
}

// Has reports whether the host advertises the named tool
func (g *Gateway) Has(name string) bool {
	if g.client == nil {
		return false
	}
	_, ok := g.client.Tool(name)
	return ok
}

// Tools returns the advertised tool names
func (g *Gateway) Tools() []string {
	if g.client == nil {
		return nil
	}
	return g.client.Tools()
}

// Records returns the retained tool-call records, oldest first
func (g *Gateway) Records() []model.ToolCallRecord {
	return g.records.Items()
}

// Call invokes a named tool. The returned Result always carries the
// elapsed wall-clock time; on any failure Err is set and the call is
// recorded as unsuccessful.
func (g *Gateway) Call(ctx context.Context, name string, args map[string]any) *Result {
	start := time.Now()
	res := &Result{Tool: name}

	defer func() {
		res.Elapsed = time.Since(start)
		g.records.Push(model.ToolCallRecord{
			Timestamp:  start,
			Tool:       name,
			Arguments:  args,
			DurationMS: float64(res.Elapsed.Microseconds()) / 1000.0,
			Success:    res.Err == nil,
		})
		if res.Err != nil {
			logging.From(ctx).Warn("tool call failed", "tool", name, "error", res.Err)
		} else {
			logging.From(ctx).Debug("tool call completed", "tool", name, "duration", res.Elapsed)
		}
	}()

	if g.client == nil {
		res.Err = ErrNotConnected
		return res
	}

	if t, ok := g.client.Tool(name); ok {
		if err := validateArguments(t, args); err != nil {
			res.Err = goerr.Wrap(err, "invalid tool arguments", goerr.V("tool", name))
			return res
		}
	}

	out, err := g.client.CallTool(ctx, name, args)
	if err != nil {
		res.Err = err
		return res
	}

	unwrap(out, res)
	return res
}

// unwrap extracts the usable payload from a raw host result. A text payload
// that parses as a JSON object becomes Payload; otherwise it is kept as raw
// Text. An error indicator embedded in the payload becomes a tagged Err.
func unwrap(out *sdk.CallToolResult, res *Result) {
	var text string
	for _, content := range out.Content {
		if tc, ok := content.(*sdk.TextContent); ok {
			text = tc.Text
			break
		}
	}

	if out.IsError {
		msg := text
		if msg == "" {
			msg = "tool execution failed"
		}
		res.Err = goerr.New("tool returned error", goerr.V("tool", res.Tool), goerr.V("message", msg))
		return
	}

	if text == "" {
		res.Payload = map[string]any{}
		return
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		res.Text = strings.TrimSpace(text)
		return
	}

	if msg, ok := payload["error"].(string); ok && msg != "" {
		res.Err = goerr.New("tool returned error", goerr.V("tool", res.Tool), goerr.V("message", msg))
		return
	}

	res.Payload = payload
}
