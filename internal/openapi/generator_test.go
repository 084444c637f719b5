package openapi

import (
	"encoding/json"
	"testing"
)

func TestGenerate_Info(t *testing.T) {
	doc := Generate("http://localhost:3000", "1.2.3")

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI version = %q, want %q", doc.OpenAPI, "3.1.0")
	}
	if doc.Info == nil || doc.Info.Version != "1.2.3" {
		t.Fatalf("Info not set correctly: %+v", doc.Info)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "http://localhost:3000" {
		t.Errorf("Servers not set correctly")
	}

	if got := Generate("", "").Info.Version; got != "dev" {
		t.Errorf("empty version should default to dev, got %q", got)
	}
}

func TestGenerate_Paths(t *testing.T) {
	doc := Generate("http://localhost:3000", "test")

	tests := []struct {
		path   string
		method string
	}{
		{"/add-key", "POST"},
		{"/verify-key", "POST"},
		{"/api/validate-key", "GET"},
		{"/api/keys", "GET"},
		{"/api/keys", "POST"},
		{"/api/keys/{id}/revoke", "POST"},
		{"/api/admin/session", "POST"},
		{"/api/admin/session", "DELETE"},
		{"/healthz", "GET"},
		{"/readyz", "GET"},
	}
	for _, tt := range tests {
		item := doc.Paths.Value(tt.path)
		if item == nil {
			t.Errorf("missing path %s", tt.path)
			continue
		}
		if item.GetOperation(tt.method) == nil {
			t.Errorf("missing %s %s", tt.method, tt.path)
		}
	}
}

func TestGenerate_SecuritySchemes(t *testing.T) {
	doc := Generate("http://localhost:3000", "test")

	apiKey := doc.Components.SecuritySchemes["apiKey"]
	if apiKey == nil || apiKey.Value.In != "header" || apiKey.Value.Name != "x-api-key" {
		t.Errorf("apiKey scheme not set correctly: %+v", apiKey)
	}
	bearer := doc.Components.SecuritySchemes["bearerAuth"]
	if bearer == nil || bearer.Value.Scheme != "bearer" {
		t.Errorf("bearerAuth scheme not set correctly: %+v", bearer)
	}

	validate := doc.Paths.Value("/api/validate-key").Get
	if validate.Security == nil || len(*validate.Security) != 1 {
		t.Fatal("validate-key should require the apiKey scheme")
	}
	if _, ok := (*validate.Security)[0]["apiKey"]; !ok {
		t.Error("validate-key security should reference apiKey")
	}
}

func TestGenerate_ErrorResponses(t *testing.T) {
	doc := Generate("http://localhost:3000", "test")

	add := doc.Paths.Value("/add-key").Post
	for _, code := range []string{"200", "400", "403", "500"} {
		if add.Responses.Value(code) == nil {
			t.Errorf("/add-key missing %s response", code)
		}
	}

	if _, ok := doc.Components.Schemas["ErrorResponse"]; !ok {
		t.Error("missing ErrorResponse schema")
	}
}

func TestGenerate_KeyTypeEnum(t *testing.T) {
	doc := Generate("http://localhost:3000", "test")

	req := doc.Components.Schemas["AddKeyRequest"].Value
	typ := req.Properties["type"].Value
	want := []string{"hour", "day", "month", "lifetime"}
	if len(typ.Enum) != len(want) {
		t.Fatalf("enum = %v, want %v", typ.Enum, want)
	}
	for i, w := range want {
		if typ.Enum[i] != w {
			t.Errorf("enum[%d] = %v, want %s", i, typ.Enum[i], w)
		}
	}
}

func TestGenerate_MarshalsJSON(t *testing.T) {
	data, err := json.Marshal(Generate("http://localhost:3000", "test"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := out["paths"].(map[string]interface{})["/verify-key"]; !ok {
		t.Error("marshalled document missing /verify-key")
	}
}
