// Package mcp provides the client side of the capability host: a single
// MCP session owned by one orchestrator, and a gateway that normalizes
// tool-call results and failures.
package mcp

import (
	"context"
	"os"
	"os/exec"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/yaml.v3"
)

// ErrNotConnected is returned when a tool call is attempted without a live
// host session
var ErrNotConnected = goerr.New("capability host not connected")

// HostConfig describes how to reach the capability host
type HostConfig struct {
	Transport string            `yaml:"transport"` // "stdio" or "http"
	Command   []string          `yaml:"command"`
	URL       string            `yaml:"url"`
	Env       map[string]string `yaml:"env"`
}

type configFile struct {
	Host HostConfig `yaml:"host"`
}

// LoadHostConfig reads a host configuration from a YAML file
func LoadHostConfig(path string) (*HostConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read host config", goerr.V("path", path))
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(err, "failed to parse host config", goerr.V("path", path))
	}

	if cfg.Host.Transport == "" {
		return nil, goerr.New("host transport is required", goerr.V("path", path))
	}

	return &cfg.Host, nil
}

// Client holds one session with the capability host. It is owned by a
// single orchestrator and must not be shared.
type Client struct {
	session *sdk.ClientSession
	tools   map[string]*sdk.Tool
	names   []string

	closeOnce sync.Once
	closeErr  error
}

// Connect establishes the host session and lists its advertised tools.
// A connection failure here is fatal to the orchestrator.
func Connect(ctx context.Context, cfg HostConfig) (*Client, error) {
	impl := sdk.NewClient(&sdk.Implementation{
		Name:    "supportagent",
		Version: "0.1.0",
	}, nil)

	var transport sdk.Transport
	switch cfg.Transport {
	case "stdio":
		if len(cfg.Command) == 0 {
			return nil, goerr.New("command is required for stdio transport")
		}
		cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
		if len(cfg.Env) > 0 {
			env := os.Environ()
			for k, v := range cfg.Env {
				env = append(env, k+"="+v)
			}
			cmd.Env = env
		}
		transport = &sdk.CommandTransport{Command: cmd}

	case "http":
		if cfg.URL == "" {
			return nil, goerr.New("url is required for http transport")
		}
		transport = &sdk.StreamableClientTransport{Endpoint: cfg.URL}

	default:
		return nil, goerr.New("unsupported transport",
			goerr.V("transport", cfg.Transport),
			goerr.V("supported", []string{"stdio", "http"}))
	}

	session, err := impl.Connect(ctx, transport, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to capability host")
	}

	toolsResult, err := session.ListTools(ctx, nil)
	if err != nil {
		_ = session.Close()
		return nil, goerr.Wrap(err, "failed to list host tools")
	}

	c := &Client{
		session: session,
		tools:   make(map[string]*sdk.Tool, len(toolsResult.Tools)),
	}
	for _, t := range toolsResult.Tools {
		c.tools[t.Name] = t
		c.names = append(c.names, t.Name)
	}

	return c, nil
}

// Tools returns the names of the advertised tools in listing order
func (c *Client) Tools() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Tool returns the advertised tool definition, if present
func (c *Client) Tool(name string) (*sdk.Tool, bool) {
	t, ok := c.tools[name]
	return t, ok
}

// CallTool performs a single round-trip call against the host
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*sdk.CallToolResult, error) {
	if c == nil || c.session == nil {
		return nil, ErrNotConnected
	}

	result, err := c.session.CallTool(ctx, &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call tool", goerr.V("tool", name))
	}

	return result, nil
}

// Close releases the host session. Safe to call multiple times; the session
// is closed exactly once.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() {
		if c.session != nil {
			if err := c.session.Close(); err != nil {
				c.closeErr = goerr.Wrap(err, "failed to close host session")
			}
		}
	})
	return c.closeErr
}
