package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/taskboard/internal/apiclient"
)

func setupTestAPI(t *testing.T, handler http.HandlerFunc) *apiclient.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return apiclient.NewClient(server.URL, apiclient.NewBearerAuth(apiclient.StaticToken("t1")), zerolog.Nop(),
		apiclient.WithHTTPClient(server.Client()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func envelope(data any) map[string]any {
	return map[string]any{"success": true, "message": "ok", "data": data}
}

func failure(message string) map[string]any {
	return map[string]any{"success": false, "message": message}
}

// unreachableAPI always fails at the transport level.
type unreachableAPI struct{ err error }

func (u unreachableAPI) Get(_ context.Context, _ string, _ any) error { return u.err }
func (u unreachableAPI) Post(_ context.Context, _ string, _, _ any) error { return u.err }
func (u unreachableAPI) Put(_ context.Context, _ string, _, _ any) error { return u.err }
func (u unreachableAPI) Patch(_ context.Context, _ string, _, _ any) error { return u.err }
func (u unreachableAPI) Delete(_ context.Context, _ string, _ any) error { return u.err }

// countingAPI records calls without sending anything.
type countingAPI struct {
	unreachableAPI
	calls int
}

func (c *countingAPI) Post(ctx context.Context, path string, body, out any) error {
	c.calls++
	return c.unreachableAPI.Post(ctx, path, body, out)
}
