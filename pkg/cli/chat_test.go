package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/omnitech/supportagent/pkg/service/mcp"
	"github.com/omnitech/supportagent/pkg/usecase/agent"
)

// newBareAgent connects to a host that advertises no tools, so every
// feature runs in its degraded form
func newBareAgent(t *testing.T) *agent.Agent {
	t.Helper()

	server := sdk.NewServer(&sdk.Implementation{
		Name:    "bare-host",
		Version: "1.0.0",
	}, nil)
	handler := sdk.NewStreamableHTTPHandler(func(r *http.Request) *sdk.Server {
		return server
	}, nil)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	client, err := mcp.Connect(context.Background(), mcp.HostConfig{
		Transport: "http",
		URL:       ts.URL,
	})
	gt.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	a, err := agent.New(context.Background(), agent.NewInput{Host: client})
	gt.NoError(t, err)
	return a
}

func TestRunDemo(t *testing.T) {
	a := newBareAgent(t)

	var buf bytes.Buffer
	runDemo(context.Background(), &buf, a, "")

	out := buf.String()
	for _, q := range demoQueries {
		gt.S(t, out).Contains("> " + q)
	}
	// Every sample query produced an answer line with its workflow tag
	gt.S(t, out).Contains("[classification]")
	gt.S(t, out).Contains("[direct_rag]")

	gt.Equal(t, a.HistoryLen(), 3)
}
