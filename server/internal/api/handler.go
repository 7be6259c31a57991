package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/minikv/minikv/server/internal/store"
)

// ConnCounter reports currently open client connections.
type ConnCounter interface {
	Active() int
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
// It reads the keyspace and never mutates it.
type Handler struct {
	store   *store.Store
	conns   []ConnCounter
	started time.Time
	mux     *http.ServeMux
}

// New creates a Handler wired to st and registers all routes.
// conns are summed into the health connection count.
func New(st *store.Store, conns ...ConnCounter) http.Handler {
	h := &Handler{store: st, conns: conns, started: time.Now(), mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/keys", h.listKeys)
	h.mux.HandleFunc("/api/v1/keys/", h.getKey) // subtree, extracts {key}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health: key count, open connections and uptime.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	active := 0
	for _, c := range h.conns {
		active += c.Active()
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Keys:          h.store.Live(),
		Connections:   active,
		UptimeSeconds: int64(time.Since(h.started) / time.Second),
	})
}

// listKeys returns GET /api/v1/keys: every live key with its type and TTL.
func (h *Handler) listKeys(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	items := h.store.List()
	out := make([]KeySummary, 0, len(items))
	for _, it := range items {
		out = append(out, KeySummary{
			Key:        it.Key,
			Type:       it.Value.TypeName(),
			TTLSeconds: int64(h.store.TTL(it) / time.Second),
		})
	}
	jsonResp(w, http.StatusOK, out)
}

// getKey returns GET /api/v1/keys/{key}: one live key with its value.
func (h *Handler) getKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	key := strings.TrimPrefix(r.URL.Path, "/api/v1/keys/")
	if key == "" {
		h.listKeys(w, r)
		return
	}

	it, ok := h.store.Lookup(key)
	if !ok {
		jsonErr(w, http.StatusNotFound, "key not found")
		return
	}
	jsonResp(w, http.StatusOK, KeyResponse{
		Key:        it.Key,
		Type:       it.Value.TypeName(),
		Value:      jsonValue(it.Value),
		TTLSeconds: int64(h.store.TTL(it) / time.Second),
		ExpiresAt:  it.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// jsonValue maps a store value onto its natural JSON shape.
func jsonValue(v store.Value) interface{} {
	switch v := v.(type) {
	case store.Scalar:
		return string(v)
	case store.List:
		return []string(v)
	case store.Map:
		return map[string]string(v)
	default:
		return nil
	}
}
