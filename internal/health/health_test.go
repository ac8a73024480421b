package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

// deadlinePinger reports whether Check gave it a deadline.
type deadlinePinger struct{ hadDeadline bool }

func (d *deadlinePinger) Ping(ctx context.Context) error {
	_, d.hadDeadline = ctx.Deadline()
	return nil
}

func TestChecker_AllHealthy(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Optional("api", stubPinger{})
	c.Require("credentials", stubPinger{})

	r := c.Check(context.Background())
	assert.Equal(t, StatusOK, r.Status)
	assert.True(t, r.Ready())
	assert.Equal(t, map[string]Status{"api": StatusOK, "credentials": StatusOK}, r.Dependencies)
	assert.WithinDuration(t, time.Now(), r.CheckedAt, time.Minute)
}

func TestChecker_CredentialStoreDown(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Optional("api", stubPinger{errors.New("connection refused")})
	c.Require("credentials", stubPinger{errors.New("database is locked")})

	r := c.Check(context.Background())
	assert.Equal(t, StatusDown, r.Status, "down outranks degraded")
	assert.False(t, r.Ready())
	assert.Equal(t, StatusDegraded, r.Dependencies["api"])
	assert.Equal(t, StatusDown, r.Dependencies["credentials"])
}

func TestChecker_APIUnreachableIsDegraded(t *testing.T) {
	c := NewChecker(zerolog.Nop())
	c.Optional("api", stubPinger{errors.New("connection refused")})
	c.Require("credentials", stubPinger{})

	r := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, r.Status)
	assert.True(t, r.Ready())
}

func TestChecker_NoDependencies(t *testing.T) {
	r := NewChecker(zerolog.Nop()).Check(context.Background())
	assert.Equal(t, StatusOK, r.Status)
	assert.Empty(t, r.Dependencies)
}

func TestChecker_PingsHaveDeadline(t *testing.T) {
	p := &deadlinePinger{}
	c := NewChecker(zerolog.Nop())
	c.Require("credentials", p)
	c.Check(context.Background())
	assert.True(t, p.hadDeadline)
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		want     Status
	}{
		{"healthy", nil, http.StatusOK, StatusOK},
		{"down", errors.New("disk I/O error"), http.StatusServiceUnavailable, StatusDown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker(zerolog.Nop())
			c.Require("credentials", stubPinger{tt.err})

			rr := httptest.NewRecorder()
			c.ReadinessHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.wantCode, rr.Code)

			var got Report
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, tt.want, got.Dependencies["credentials"])
		})
	}
}
