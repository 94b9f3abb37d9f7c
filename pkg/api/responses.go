package api

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents the status of a single health check component.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ModTagsResponse is returned by POST /api/get-mod-tags (§6).
type ModTagsResponse struct {
	SourceID string   `json:"source_id"`
	Tags     []string `json:"tags"`
}

// FeedbackResponse acknowledges a feedback submission (§6 "idempotent by
// build_id").
type FeedbackResponse struct {
	Success bool `json:"success"`
}
