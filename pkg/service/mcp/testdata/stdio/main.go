package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// lookupParams defines the parameters for the lookup_customer tool
type lookupParams struct {
	Email string `json:"email" jsonschema:"Customer email address"`
}

// lookupCustomer serves a single fixture customer record
func lookupCustomer(ctx context.Context, req *mcp.CallToolRequest, params *lookupParams) (*mcp.CallToolResult, any, error) {
	payload := map[string]any{"found": false, "email": params.Email}
	if params.Email == "jane.doe@example.com" {
		payload = map[string]any{
			"found":           true,
			"name":            "Jane Doe",
			"tier":            "Premium",
			"support_tickets": 2,
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}

func main() {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-stdio-host",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "lookup_customer",
		Description: "Look up a customer record by email",
	}, lookupCustomer)

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("Server failed: %v", err)
		os.Exit(1)
	}
}
