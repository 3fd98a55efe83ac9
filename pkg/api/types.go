package api

import "github.com/platinummonkey/protorules/pkg/rules"

// CompileRequest is the body of POST /v1/schemas
type CompileRequest struct {
	Source string `json:"source"`
}

// SchemaResponse describes a compiled schema
type SchemaResponse struct {
	Key      string                        `json:"key"`
	Messages map[string]*rules.Description `json:"messages"`
}

// ValidateResponse is the result of validating a document against a message
type ValidateResponse struct {
	Valid  bool                     `json:"valid"`
	Value  any                      `json:"value,omitempty"`
	Errors []*rules.ValidationError `json:"errors,omitempty"`
}

// HealthResponse is returned by the health endpoint. Store is present
// only when a source store is configured.
type HealthResponse struct {
	Status        string            `json:"status"`
	CachedSchemas int               `json:"cached_schemas"`
	Store         *DependencyStatus `json:"store,omitempty"`
}

// DependencyStatus reports one dependency checked by the health endpoint
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}
