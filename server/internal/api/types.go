package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status        string `json:"status"`
	Keys          int    `json:"keys"`
	Connections   int    `json:"connections"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// KeySummary is one entry in GET /api/v1/keys.
type KeySummary struct {
	Key        string `json:"key"`
	Type       string `json:"type"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// KeyResponse is the payload for GET /api/v1/keys/{key}.
// Value is a string, a list of strings or an object, depending on Type.
type KeyResponse struct {
	Key        string      `json:"key"`
	Type       string      `json:"type"`
	Value      interface{} `json:"value"`
	TTLSeconds int64       `json:"ttl_seconds"`
	ExpiresAt  string      `json:"expires_at"` // RFC3339
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
