package openapi

import (
	"net/http"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/keydesk/keydesk/internal/model"
)

const (
	tagRegistry = "registry"
	tagKeys     = "api-keys"
	tagAdmin    = "admin"
	tagOps      = "operations"
)

// Generate builds the OpenAPI 3.1 document for the keydesk JSON API.
func Generate(baseURL, version string) *openapi3.T {
	if version == "" {
		version = "dev"
	}
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "keydesk API",
			Description: "License key registry and API key management.",
			Version:     version,
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
		Tags: openapi3.Tags{
			{Name: tagRegistry, Description: "License keys with type-derived expiry."},
			{Name: tagKeys, Description: "Dashboard API keys."},
			{Name: tagAdmin, Description: "Admin sessions."},
			{Name: tagOps, Description: "Health and discovery."},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = schemas()
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"apiKey": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type: "apiKey",
				In:   "header",
				Name: "x-api-key",
			},
		},
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		},
	}
	doc.Components = &components

	doc.Paths = openapi3.NewPaths()
	addRegistryPaths(doc)
	addAPIKeyPaths(doc)
	addAdminPaths(doc)
	addOperationalPaths(doc)

	return doc
}

// ─── Paths ──────────────────────────────────────────────────────────────────

func addRegistryPaths(doc *openapi3.T) {
	doc.Paths.Set("/add-key", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{tagRegistry},
			Summary:     "Register a license key",
			Description: "Stores a key with an expiry derived from its type. Re-adding an existing key succeeds and leaves it unchanged.",
			OperationID: "addKey",
			RequestBody: jsonBody("AddKeyRequest"),
			Security:    &openapi3.SecurityRequirements{},
			Responses: newResponses(http.StatusOK, "Key added", ref("AddKeyResponse"),
				http.StatusBadRequest, http.StatusForbidden, http.StatusTooManyRequests, http.StatusInternalServerError),
		},
	})

	doc.Paths.Set("/verify-key", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{tagRegistry},
			Summary:     "Verify a license key",
			OperationID: "verifyKey",
			RequestBody: jsonBody("VerifyKeyRequest"),
			Security:    &openapi3.SecurityRequirements{},
			Responses: newResponses(http.StatusOK, "Verification result", ref("VerifyKeyResponse"),
				http.StatusBadRequest, http.StatusInternalServerError),
		},
	})
}

func addAPIKeyPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/validate-key", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{tagKeys},
			Summary:     "Validate an API key",
			Description: "Checks the key in the x-api-key header and returns the name it was issued to.",
			OperationID: "validateAPIKey",
			Security:    &openapi3.SecurityRequirements{{"apiKey": {}}},
			Responses: newResponses(http.StatusOK, "Key is valid", ref("ValidateKeyResponse"),
				http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError),
		},
	})

	bearer := &openapi3.SecurityRequirements{{"bearerAuth": {}}}

	doc.Paths.Set("/api/keys", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{tagKeys},
			Summary:     "List API keys",
			OperationID: "listAPIKeys",
			Security:    bearer,
			Responses: newResponses(http.StatusOK, "API keys, newest first", ref("APIKeyList"),
				http.StatusUnauthorized, http.StatusInternalServerError),
		},
		Post: &openapi3.Operation{
			Tags:        []string{tagKeys},
			Summary:     "Create an API key",
			Description: "The plaintext api_key is returned in this response only.",
			OperationID: "createAPIKey",
			Security:    bearer,
			RequestBody: jsonBody("CreateAPIKeyRequest"),
			Responses: newResponses(http.StatusCreated, "API key created", ref("CreatedAPIKey"),
				http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError),
		},
	})

	doc.Paths.Set("/api/keys/{id}/revoke", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{tagKeys},
			Summary:     "Revoke an API key",
			Description: "Revocation is permanent. Revoking an unknown id succeeds.",
			OperationID: "revokeAPIKey",
			Security:    bearer,
			Parameters: openapi3.Parameters{
				{Value: openapi3.NewPathParameter("id").WithSchema(openapi3.NewInt64Schema())},
			},
			Responses: newResponses(http.StatusOK, "Revoked", ref("SuccessResponse"),
				http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError),
		},
	})
}

func addAdminPaths(doc *openapi3.T) {
	doc.Paths.Set("/api/admin/session", &openapi3.PathItem{
		Post: &openapi3.Operation{
			Tags:        []string{tagAdmin},
			Summary:     "Log in",
			OperationID: "login",
			RequestBody: jsonBody("LoginRequest"),
			Security:    &openapi3.SecurityRequirements{},
			Responses: newResponses(http.StatusOK, "Session token", ref("LoginResponse"),
				http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests),
		},
		Delete: &openapi3.Operation{
			Tags:        []string{tagAdmin},
			Summary:     "Log out",
			Description: "Revokes the presented session token.",
			OperationID: "logout",
			Security:    &openapi3.SecurityRequirements{{"bearerAuth": {}}},
			Responses:   newResponses(http.StatusOK, "Logged out", ref("SuccessResponse")),
		},
	})
}

func addOperationalPaths(doc *openapi3.T) {
	status := ref("StatusResponse")
	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{tagOps},
			Summary:     "Liveness probe",
			OperationID: "healthz",
			Security:    &openapi3.SecurityRequirements{},
			Responses:   newResponses(http.StatusOK, "Alive", status),
		},
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{tagOps},
			Summary:     "Readiness probe",
			Description: "Fails when the database is unreachable.",
			OperationID: "readyz",
			Security:    &openapi3.SecurityRequirements{},
			Responses:   newResponses(http.StatusOK, "Ready", status, http.StatusServiceUnavailable),
		},
	})
}

// ─── Schemas ────────────────────────────────────────────────────────────────

func schemas() openapi3.Schemas {
	keyTypes := make([]interface{}, len(model.KeyTypes))
	for i, t := range model.KeyTypes {
		keyTypes[i] = string(t)
	}

	apiKey := object(openapi3.Schemas{
		"id":         openapi3.NewInt64Schema().NewRef(),
		"name":       openapi3.NewStringSchema().WithMaxLength(80).NewRef(),
		"active":     openapi3.NewBoolSchema().NewRef(),
		"status":     openapi3.NewStringSchema().WithEnum(model.StatusActive, model.StatusRevoked).NewRef(),
		"created_at": openapi3.NewDateTimeSchema().NewRef(),
	}, "id", "name", "active", "status", "created_at")

	created := object(openapi3.Schemas{
		"id":         openapi3.NewInt64Schema().NewRef(),
		"name":       openapi3.NewStringSchema().NewRef(),
		"active":     openapi3.NewBoolSchema().NewRef(),
		"status":     openapi3.NewStringSchema().NewRef(),
		"created_at": openapi3.NewDateTimeSchema().NewRef(),
		"api_key": &openapi3.SchemaRef{Value: &openapi3.Schema{
			Type:        &openapi3.Types{"string"},
			Pattern:     "^[0-9a-f]{64}$",
			Description: "Plaintext key. Shown once and never stored.",
		}},
	}, "id", "name", "api_key")

	list := openapi3.NewArraySchema()
	list.Items = ref("APIKey")

	return openapi3.Schemas{
		"ErrorResponse": object(openapi3.Schemas{
			"error": openapi3.NewStringSchema().NewRef(),
		}, "error"),
		"SuccessResponse": object(openapi3.Schemas{
			"success": openapi3.NewBoolSchema().NewRef(),
		}, "success"),
		"StatusResponse": object(openapi3.Schemas{
			"status": openapi3.NewStringSchema().NewRef(),
		}, "status"),
		"AddKeyRequest": object(openapi3.Schemas{
			"key":          openapi3.NewStringSchema().WithMinLength(1).NewRef(),
			"type":         openapi3.NewStringSchema().WithEnum(keyTypes...).NewRef(),
			"admin_secret": openapi3.NewStringSchema().WithFormat("password").NewRef(),
		}, "key", "type", "admin_secret"),
		"AddKeyResponse": object(openapi3.Schemas{
			"success": openapi3.NewBoolSchema().NewRef(),
			"message": openapi3.NewStringSchema().NewRef(),
		}, "success", "message"),
		"VerifyKeyRequest": object(openapi3.Schemas{
			"key": openapi3.NewStringSchema().WithMinLength(1).NewRef(),
		}, "key"),
		"VerifyKeyResponse": object(openapi3.Schemas{
			"valid":   openapi3.NewBoolSchema().NewRef(),
			"message": openapi3.NewStringSchema().WithEnum("Invalid key", "Key expired", "Key valid").NewRef(),
		}, "valid", "message"),
		"ValidateKeyResponse": object(openapi3.Schemas{
			"ok":    openapi3.NewBoolSchema().NewRef(),
			"owner": openapi3.NewStringSchema().NewRef(),
		}, "ok", "owner"),
		"LoginRequest": object(openapi3.Schemas{
			"user": openapi3.NewStringSchema().NewRef(),
			"pass": openapi3.NewStringSchema().WithFormat("password").NewRef(),
		}, "user", "pass"),
		"LoginResponse": object(openapi3.Schemas{
			"session_token": openapi3.NewStringSchema().NewRef(),
			"token_type":    openapi3.NewStringSchema().NewRef(),
			"expires_in":    openapi3.NewInt32Schema().NewRef(),
		}, "session_token", "token_type", "expires_in"),
		"CreateAPIKeyRequest": object(openapi3.Schemas{
			"name": openapi3.NewStringSchema().NewRef(),
		}),
		"APIKey":        apiKey,
		"CreatedAPIKey": created,
		"APIKeyList": object(openapi3.Schemas{
			"resource": list.NewRef(),
			"meta": object(openapi3.Schemas{
				"count": openapi3.NewInt64Schema().NewRef(),
			}, "count"),
		}, "resource", "meta"),
	}
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func object(props openapi3.Schemas, required ...string) *openapi3.SchemaRef {
	s := openapi3.NewObjectSchema()
	s.Properties = props
	s.Required = required
	return s.NewRef()
}

func ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef("#/components/schemas/"+name, nil)
}

func jsonBody(schemaName string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithRequired(true).
			WithJSONSchemaRef(ref(schemaName)),
	}
}

// newResponses builds a Responses map with one success response and the
// given error statuses, all sharing the ErrorResponse schema.
func newResponses(status int, description string, schema *openapi3.SchemaRef, errorStatuses ...int) *openapi3.Responses {
	responses := openapi3.NewResponses()

	desc := description
	responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := ref("ErrorResponse")
	for _, code := range errorStatuses {
		errDesc := http.StatusText(code)
		responses.Set(strconv.Itoa(code), &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &errDesc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}
