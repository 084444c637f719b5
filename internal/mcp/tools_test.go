package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/keydesk/keydesk/internal/service"
	"github.com/keydesk/keydesk/internal/store"
)

const testAdminSecret = "mcp-secret"

func newTestServer(t *testing.T) *MCPServer {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{Driver: store.DriverSQLite})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMCPServer(
		service.NewRegistryService(st, testAdminSecret),
		service.NewAPIKeyService(st),
		"test",
		logger,
	)
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", res.Content[0])
	}
	return text.Text
}

func decodeResult(t *testing.T, res *mcp.CallToolResult, v interface{}) {
	t.Helper()
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), v); err != nil {
		t.Fatalf("decode result: %v", err)
	}
}

func expectToolError(t *testing.T, res *mcp.CallToolResult, contains string) {
	t.Helper()
	if !res.IsError {
		t.Fatalf("expected a tool error, got %s", resultText(t, res))
	}
	if got := resultText(t, res); !strings.Contains(got, contains) {
		t.Errorf("error = %q, want it to contain %q", got, contains)
	}
}

func TestToolsList(t *testing.T) {
	s := newTestServer(t)

	resp := s.Server().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, name := range []string{
		"keydesk_verify_key",
		"keydesk_add_key",
		"keydesk_list_api_keys",
		"keydesk_create_api_key",
		"keydesk_revoke_api_key",
		"keydesk_validate_api_key",
	} {
		if !strings.Contains(string(b), name) {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestAddAndVerifyKey(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleAddKey(ctx, callRequest("keydesk_add_key", map[string]interface{}{
		"key": "ABC123", "type": "day", "admin_secret": testAdminSecret,
	}))
	if err != nil {
		t.Fatalf("handleAddKey: %v", err)
	}
	var added service.AddResult
	decodeResult(t, res, &added)
	if !added.Success || added.Message != service.MessageKeyAdded {
		t.Errorf("got %+v", added)
	}

	res, err = s.handleVerifyKey(ctx, callRequest("keydesk_verify_key", map[string]interface{}{"key": "ABC123"}))
	if err != nil {
		t.Fatalf("handleVerifyKey: %v", err)
	}
	var verified service.VerifyResult
	decodeResult(t, res, &verified)
	if !verified.Valid || verified.Message != service.MessageKeyValid {
		t.Errorf("got %+v", verified)
	}

	res, _ = s.handleVerifyKey(ctx, callRequest("keydesk_verify_key", map[string]interface{}{"key": "missing"}))
	decodeResult(t, res, &verified)
	if verified.Valid || verified.Message != service.MessageInvalidKey {
		t.Errorf("unknown key got %+v", verified)
	}
}

func TestAddKeyErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, _ := s.handleAddKey(ctx, callRequest("keydesk_add_key", map[string]interface{}{
		"key": "k", "type": "day", "admin_secret": "wrong",
	}))
	expectToolError(t, res, "Unauthorized")

	res, _ = s.handleAddKey(ctx, callRequest("keydesk_add_key", map[string]interface{}{
		"key": "k", "type": "week", "admin_secret": testAdminSecret,
	}))
	expectToolError(t, res, "Invalid key or type")

	// Types match exactly, as on POST /add-key.
	res, _ = s.handleAddKey(ctx, callRequest("keydesk_add_key", map[string]interface{}{
		"key": "k", "type": "DAY", "admin_secret": testAdminSecret,
	}))
	expectToolError(t, res, "Invalid key or type")

	res, _ = s.handleVerifyKey(ctx, callRequest("keydesk_verify_key", map[string]interface{}{}))
	expectToolError(t, res, "Key required")
}

func TestVerifyBlankKeyIsOrdinary(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleVerifyKey(context.Background(), callRequest("keydesk_verify_key", map[string]interface{}{"key": "   "}))
	if err != nil {
		t.Fatalf("handleVerifyKey: %v", err)
	}
	var got service.VerifyResult
	decodeResult(t, res, &got)
	if got.Valid || got.Message != "Invalid key" {
		t.Errorf("got %+v, want invalid key", got)
	}
}

func TestAPIKeyTools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleCreateAPIKey(ctx, callRequest("keydesk_create_api_key", map[string]interface{}{"name": "Alice"}))
	if err != nil {
		t.Fatalf("handleCreateAPIKey: %v", err)
	}
	var created apiKeyInfo
	decodeResult(t, res, &created)
	if created.ID == 0 || created.Name != "Alice" || len(created.APIKey) != 64 {
		t.Fatalf("unexpected created key: %+v", created)
	}

	res, _ = s.handleValidateAPIKey(ctx, callRequest("keydesk_validate_api_key", map[string]interface{}{"api_key": created.APIKey}))
	var ok struct {
		OK    bool   `json:"ok"`
		Owner string `json:"owner"`
	}
	decodeResult(t, res, &ok)
	if !ok.OK || ok.Owner != "Alice" {
		t.Errorf("validate got %+v", ok)
	}

	res, _ = s.handleListAPIKeys(ctx, callRequest("keydesk_list_api_keys", nil))
	if text := resultText(t, res); strings.Contains(text, created.APIKey) {
		t.Error("list must not expose secrets")
	}
	var list struct {
		APIKeys []apiKeyInfo `json:"api_keys"`
		Count   int          `json:"count"`
	}
	decodeResult(t, res, &list)
	if list.Count != 1 || list.APIKeys[0].Status != "Active" {
		t.Errorf("list got %+v", list)
	}

	res, _ = s.handleRevokeAPIKey(ctx, callRequest("keydesk_revoke_api_key", map[string]interface{}{"id": float64(created.ID)}))
	if res.IsError {
		t.Fatalf("revoke failed: %s", resultText(t, res))
	}

	res, _ = s.handleValidateAPIKey(ctx, callRequest("keydesk_validate_api_key", map[string]interface{}{"api_key": created.APIKey}))
	expectToolError(t, res, "Invalid or revoked API key")

	res, _ = s.handleValidateAPIKey(ctx, callRequest("keydesk_validate_api_key", map[string]interface{}{}))
	expectToolError(t, res, "Missing api_key")

	res, _ = s.handleRevokeAPIKey(ctx, callRequest("keydesk_revoke_api_key", map[string]interface{}{"id": "abc"}))
	expectToolError(t, res, "positive integer")
}

func TestResources(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if _, err := s.keys.Create(ctx, "bob"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	contents, err := s.handleAPIKeysResource(ctx, mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleAPIKeysResource: %v", err)
	}
	text := contents[0].(mcp.TextResourceContents).Text
	if !strings.Contains(text, "bob") {
		t.Errorf("api keys resource missing bob: %s", text)
	}

	contents, err = s.handleKeyTypesResource(ctx, mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("handleKeyTypesResource: %v", err)
	}
	text = contents[0].(mcp.TextResourceContents).Text
	for _, typ := range []string{"hour", "day", "month", "lifetime"} {
		if !strings.Contains(text, typ) {
			t.Errorf("key types resource missing %s", typ)
		}
	}
}
