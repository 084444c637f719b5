package model

// ListResponse is the envelope for admin list endpoints, wrapping results
// in a "resource" array with count metadata.
type ListResponse struct {
	Resource []map[string]interface{} `json:"resource"`
	Meta     *ResponseMeta            `json:"meta,omitempty"`
}

// ResponseMeta contains count information for list responses.
type ResponseMeta struct {
	Count int `json:"count"`
}

// ErrorResponse is the flat error body returned by every JSON endpoint,
// e.g. {"error":"Unauthorized"}.
type ErrorResponse struct {
	Error string `json:"error"`
}
