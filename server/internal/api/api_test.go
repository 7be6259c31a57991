package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/minikv/minikv/server/internal/api"
	"github.com/minikv/minikv/server/internal/store"
)

// --- test helpers -----------------------------------------------------------

type fixedConns int

func (f fixedConns) Active() int { return int(f) }

func newStore() *store.Store {
	st := store.New(store.Options{})
	st.Set("s", store.Scalar("bar"), time.Minute)
	st.Set("l", store.List{"1", "2"}, time.Minute)
	st.Set("h", store.Map{"a": "1"}, time.Minute)
	st.Set("gone", store.Scalar("x"), 0)
	return st
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("decode JSON: %v (body: %s)", err, rr.Body.String())
	}
}

// --- /api/v1/health ---------------------------------------------------------

func TestHealth(t *testing.T) {
	h := api.New(newStore(), fixedConns(2), fixedConns(1))
	rr := get(t, h, "/api/v1/health")

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var resp api.HealthResponse
	decode(t, rr, &resp)

	if resp.Status != "ok" {
		t.Errorf("status: got %q, want ok", resp.Status)
	}
	if resp.Keys != 3 {
		t.Errorf("keys: got %d, want 3 (expired excluded)", resp.Keys)
	}
	if resp.Connections != 3 {
		t.Errorf("connections: got %d, want 3", resp.Connections)
	}
}

// --- /api/v1/keys -----------------------------------------------------------

func TestListKeys(t *testing.T) {
	h := api.New(newStore())
	rr := get(t, h, "/api/v1/keys")
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rr.Code)
	}

	var keys []api.KeySummary
	decode(t, rr, &keys)

	want := []struct{ key, typ string }{{"h", "Hash"}, {"l", "VecStr"}, {"s", "String"}}
	if len(keys) != len(want) {
		t.Fatalf("keys: got %d, want %d (%+v)", len(keys), len(want), keys)
	}
	for i, w := range want {
		if keys[i].Key != w.key || keys[i].Type != w.typ {
			t.Errorf("keys[%d]: got %s/%s, want %s/%s", i, keys[i].Key, keys[i].Type, w.key, w.typ)
		}
		if keys[i].TTLSeconds < 58 || keys[i].TTLSeconds > 60 {
			t.Errorf("keys[%d].ttl_seconds: got %d, want ~59", i, keys[i].TTLSeconds)
		}
	}
}

func TestListKeys_Empty(t *testing.T) {
	h := api.New(store.New(store.Options{}))
	rr := get(t, h, "/api/v1/keys")
	if body := rr.Body.String(); body != "[]\n" {
		t.Errorf("body: got %q, want []", body)
	}
}

// --- /api/v1/keys/{key} -----------------------------------------------------

func TestGetKey_Shapes(t *testing.T) {
	h := api.New(newStore())

	tests := []struct {
		key  string
		typ  string
		want string
	}{
		{"s", "String", `"bar"`},
		{"l", "VecStr", `["1","2"]`},
		{"h", "Hash", `{"a":"1"}`},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			rr := get(t, h, "/api/v1/keys/"+tc.key)
			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want 200", rr.Code)
			}
			var resp struct {
				Key       string          `json:"key"`
				Type      string          `json:"type"`
				Value     json.RawMessage `json:"value"`
				ExpiresAt string          `json:"expires_at"`
			}
			decode(t, rr, &resp)
			if resp.Type != tc.typ {
				t.Errorf("type: got %q, want %q", resp.Type, tc.typ)
			}
			if string(resp.Value) != tc.want {
				t.Errorf("value: got %s, want %s", resp.Value, tc.want)
			}
			if _, err := time.Parse(time.RFC3339, resp.ExpiresAt); err != nil {
				t.Errorf("expires_at: %v", err)
			}
		})
	}
}

func TestGetKey_NotFound(t *testing.T) {
	h := api.New(newStore())
	for _, path := range []string{"/api/v1/keys/missing", "/api/v1/keys/gone"} {
		rr := get(t, h, path)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s: status got %d, want 404", path, rr.Code)
		}
		var resp map[string]string
		decode(t, rr, &resp)
		if resp["error"] != "key not found" {
			t.Errorf("%s: error got %q", path, resp["error"])
		}
	}
}

func TestGetKey_BarePathLists(t *testing.T) {
	h := api.New(newStore())
	rr := get(t, h, "/api/v1/keys/")
	var keys []api.KeySummary
	decode(t, rr, &keys)
	if len(keys) != 3 {
		t.Errorf("keys: got %d, want 3", len(keys))
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := api.New(newStore())
	for _, path := range []string{"/api/v1/health", "/api/v1/keys", "/api/v1/keys/s"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, path, nil))
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("DELETE %s: got %d, want 405", path, rr.Code)
		}
	}
}
