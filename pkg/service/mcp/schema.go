package mcp

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// validateArguments checks call arguments against the tool's advertised
// input schema, so malformed calls fail locally instead of spending a host
// round-trip. Tools without a usable schema are not validated.
func validateArguments(t *sdk.Tool, args map[string]any) error {
	if t.InputSchema == nil {
		return nil
	}

	// The SDK exposes the schema as an opaque value; round-trip through
	// JSON to obtain a jsonschema.Schema.
	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return nil
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := resolved.Validate(args); err != nil {
		return goerr.Wrap(err, "arguments do not match tool schema")
	}
	return nil
}
