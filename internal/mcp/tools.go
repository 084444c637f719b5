package mcp

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/keydesk/keydesk/internal/model"
	"github.com/keydesk/keydesk/internal/service"
)

// registerTools registers all keydesk MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Registry tools -----

	srv.AddTool(
		mcp.NewTool("keydesk_verify_key",
			mcp.WithDescription(
				"Check whether a license key is registered and not expired. Returns "+
					"{valid, message} where message is one of \"Key valid\", "+
					"\"Key expired\" or \"Invalid key\".",
			),
			mcp.WithToolAnnotation(annotate(readOnlyTool)),
			mcp.WithString("key",
				mcp.Required(),
				mcp.Description("The license key to check"),
			),
		),
		s.handleVerifyKey,
	)

	srv.AddTool(
		mcp.NewTool("keydesk_add_key",
			mcp.WithDescription(
				"Register a license key. The expiry is derived from the type: hour, day "+
					"and month count from now, lifetime never expires. Adding a key that "+
					"already exists succeeds and leaves the original record unchanged.",
			),
			mcp.WithToolAnnotation(annotate(idempotentTool)),
			mcp.WithString("key",
				mcp.Required(),
				mcp.Description("The license key to register"),
			),
			mcp.WithString("type",
				mcp.Required(),
				mcp.Description("Key type"),
				mcp.Enum(keyTypeNames()...),
			),
			mcp.WithString("admin_secret",
				mcp.Required(),
				mcp.Description("The registry admin secret"),
			),
		),
		s.handleAddKey,
	)

	// ----- API key tools -----

	srv.AddTool(
		mcp.NewTool("keydesk_list_api_keys",
			mcp.WithDescription(
				"List all dashboard API keys, newest first, with id, name, status and "+
					"creation time. Secrets are never returned.",
			),
			mcp.WithToolAnnotation(annotate(readOnlyTool)),
		),
		s.handleListAPIKeys,
	)

	srv.AddTool(
		mcp.NewTool("keydesk_create_api_key",
			mcp.WithDescription(
				"Create a new API key. The plaintext api_key is returned in this "+
					"response only and cannot be recovered later.",
			),
			mcp.WithToolAnnotation(annotate(createTool)),
			mcp.WithString("name",
				mcp.Description("Owner name (defaults to \"unnamed\", max 80 characters)"),
			),
		),
		s.handleCreateAPIKey,
	)

	srv.AddTool(
		mcp.NewTool("keydesk_revoke_api_key",
			mcp.WithDescription(
				"Revoke an API key by id. Revoked keys fail validation immediately. "+
					"Revoking an unknown id succeeds without changes.",
			),
			mcp.WithToolAnnotation(annotate(destructiveTool)),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the API key"),
			),
		),
		s.handleRevokeAPIKey,
	)

	srv.AddTool(
		mcp.NewTool("keydesk_validate_api_key",
			mcp.WithDescription(
				"Validate an API key secret the way GET /api/validate-key does. "+
					"Returns {ok, owner} for an active key.",
			),
			mcp.WithToolAnnotation(annotate(readOnlyTool)),
			mcp.WithString("api_key",
				mcp.Required(),
				mcp.Description("The API key secret"),
			),
		),
		s.handleValidateAPIKey,
	)
}

func keyTypeNames() []string {
	names := make([]string, len(model.KeyTypes))
	for i, t := range model.KeyTypes {
		names[i] = string(t)
	}
	return names
}

// ---------------------------------------------------------------------------
// Registry handlers
// ---------------------------------------------------------------------------

func (s *MCPServer) handleVerifyKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	result, err := s.registry.VerifyKey(ctx, optionalString(request, "key"))
	if errors.Is(err, service.ErrInvalidInput) {
		return toolError("Key required")
	}
	if err != nil {
		s.logger.Error("mcp verify key failed", "error", err)
		return toolError("Database error")
	}
	return successJSON(result)
}

func (s *MCPServer) handleAddKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	key := optionalString(request, "key")
	keyType := optionalString(request, "type")
	secret := optionalString(request, "admin_secret")

	result, err := s.registry.AddKey(ctx, key, keyType, secret)
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return toolError("Unauthorized")
	case errors.Is(err, service.ErrInvalidInput):
		return toolError("Invalid key or type (valid types: %s)", strings.Join(keyTypeNames(), ", "))
	case err != nil:
		s.logger.Error("mcp add key failed", "error", err)
		return toolError("Database error")
	}
	return successJSON(result)
}

// ---------------------------------------------------------------------------
// API key handlers
// ---------------------------------------------------------------------------

type apiKeyInfo struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	APIKey    string    `json:"api_key,omitempty"`
}

func toAPIKeyInfo(k model.APIKey) apiKeyInfo {
	return apiKeyInfo{ID: k.ID, Name: k.Name, Status: k.Status(), CreatedAt: k.CreatedAt}
}

func (s *MCPServer) handleListAPIKeys(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	keys, err := s.keys.List(ctx)
	if err != nil {
		s.logger.Error("mcp list api keys failed", "error", err)
		return toolError("Failed to list API keys")
	}

	items := make([]apiKeyInfo, len(keys))
	for i, k := range keys {
		items[i] = toAPIKeyInfo(k)
	}
	return successJSON(map[string]interface{}{
		"api_keys": items,
		"count":    len(items),
	})
}

func (s *MCPServer) handleCreateAPIKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	created, err := s.keys.Create(ctx, optionalString(request, "name"))
	if err != nil {
		s.logger.Error("mcp create api key failed", "error", err)
		return toolError("Failed to create API key")
	}
	s.logger.Info("api key created", "id", created.Key.ID, "name", created.Key.Name, "via", "mcp")

	info := toAPIKeyInfo(*created.Key)
	info.APIKey = created.Secret
	return successJSON(info)
}

func (s *MCPServer) handleRevokeAPIKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request, "id")
	if err != nil {
		return toolError("%v", err)
	}

	if err := s.keys.Revoke(ctx, id); err != nil {
		s.logger.Error("mcp revoke api key failed", "id", id, "error", err)
		return toolError("Failed to revoke API key")
	}
	s.logger.Info("api key revoked", "id", id, "via", "mcp")
	return successJSON(map[string]interface{}{"success": true, "id": id})
}

func (s *MCPServer) handleValidateAPIKey(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	key, err := s.keys.Validate(ctx, optionalString(request, "api_key"))
	switch {
	case errors.Is(err, service.ErrMissingCredential):
		return toolError("Missing api_key")
	case errors.Is(err, service.ErrForbidden):
		return toolError("Invalid or revoked API key")
	case err != nil:
		s.logger.Error("mcp validate api key failed", "error", err)
		return toolError("Server error")
	}
	return successJSON(map[string]interface{}{"ok": true, "owner": key.Name})
}
