package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/keydesk/keydesk/internal/model"
)

const (
	apiKeysURI  = "keydesk://api-keys"
	keyTypesURI = "keydesk://key-types"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			apiKeysURI,
			"API Keys",
			mcp.WithResourceDescription(
				"All dashboard API keys with id, name, status and creation time.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleAPIKeysResource,
	)

	srv.AddResource(
		mcp.NewResource(
			keyTypesURI,
			"Registry Key Types",
			mcp.WithResourceDescription(
				"The license key types accepted by keydesk_add_key and how long each lasts.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleKeyTypesResource,
	)
}

func (s *MCPServer) handleAPIKeysResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	keys, err := s.keys.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}

	items := make([]apiKeyInfo, len(keys))
	for i, k := range keys {
		items[i] = toAPIKeyInfo(k)
	}
	return jsonResource(apiKeysURI, items)
}

func (s *MCPServer) handleKeyTypesResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	type keyTypeInfo struct {
		Type     string `json:"type"`
		Lifetime string `json:"lifetime"`
	}
	lifetimes := map[model.KeyType]string{
		model.KeyTypeHour:     "1 hour",
		model.KeyTypeDay:      "24 hours",
		model.KeyTypeMonth:    "1 calendar month",
		model.KeyTypeLifetime: "never expires",
	}

	items := make([]keyTypeInfo, len(model.KeyTypes))
	for i, t := range model.KeyTypes {
		items[i] = keyTypeInfo{Type: string(t), Lifetime: lifetimes[t]}
	}
	return jsonResource(keyTypesURI, items)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
