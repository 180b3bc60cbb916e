// Package memory keeps the rolling conversation window used for prompt
// continuity. Process-local, never persisted, owned by one orchestrator.
package memory

import (
	"strings"

	"github.com/omnitech/supportagent/pkg/model"
	"github.com/omnitech/supportagent/pkg/utils/ring"
)

const defaultWindow = 3

// Window retains the most recent exchanges
type Window struct {
	exchanges *ring.Buffer[model.Exchange]
}

// New creates a window with the default capacity of 3 exchanges
func New() *Window {
	return NewWithCapacity(defaultWindow)
}

// NewWithCapacity creates a window retaining the given number of exchanges
func NewWithCapacity(n int) *Window {
	return &Window{exchanges: ring.New[model.Exchange](n)}
}

// Append records one user/assistant exchange, evicting the oldest beyond
// the window capacity
func (w *Window) Append(user, assistant string) {
	w.exchanges.Push(model.Exchange{User: user, Assistant: assistant})
}

// Context renders the retained exchanges as alternating Customer/Agent
// lines, newest last. Returns "" when there is no history.
func (w *Window) Context() string {
	items := w.exchanges.Items()
	if len(items) == 0 {
		return ""
	}

	lines := make([]string, 0, len(items)*2)
	for _, ex := range items {
		lines = append(lines, "Customer: "+ex.User)
		lines = append(lines, "Agent: "+ex.Assistant)
	}
	return strings.Join(lines, "\n")
}

// Len returns the number of retained exchanges
func (w *Window) Len() int {
	return w.exchanges.Len()
}

// Clear resets the window to empty
func (w *Window) Clear() {
	w.exchanges.Clear()
}
