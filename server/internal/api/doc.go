// Package api implements the read-only HTTP introspection API of minikv-server.
//
// New(store, conns...) returns an http.Handler that serves:
//
//	GET /api/v1/health       status, live key count, open connections, uptime
//	GET /api/v1/keys         all live keys with type and remaining TTL
//	GET /api/v1/keys/{key}   one live key with its value; 404 if absent or expired
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for non-GET methods
//   - Exclude expired entries even before the sweeper removes them
//
// JSON types are defined in types.go. No external HTTP framework is used.
package api
