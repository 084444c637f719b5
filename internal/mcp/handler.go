package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// optionalString returns the argument, or "" when it is absent or not a string.
func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

// requireID extracts a positive integer id argument.
func requireID(request mcp.CallToolRequest, key string) (int64, error) {
	id := request.GetInt(key, 0)
	if id <= 0 {
		return 0, fmt.Errorf("parameter %q must be a positive integer", key)
	}
	return int64(id), nil
}

// successJSON renders data as indented JSON text.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError reports a failed call inside the result; the session stays open.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}
