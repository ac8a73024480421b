// Package health reports whether the remote API and the credential store are
// usable.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Status is the state of one dependency or of the client as a whole.
type Status string

const (
	StatusOK       Status = "ok"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

const pingTimeout = 5 * time.Second

// Pinger is anything with a cheap reachability check, such as the API
// client or the credential persistence.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name     string
	pinger   Pinger
	required bool
}

// Report is the outcome of one Check.
type Report struct {
	Status       Status            `json:"status"`
	Dependencies map[string]Status `json:"dependencies"`
	CheckedAt    time.Time         `json:"checkedAt"`
}

// Ready is false only when a required dependency failed.
func (r Report) Ready() bool { return r.Status != StatusDown }

// Checker pings the client's dependencies. Add dependencies before the
// checker is shared.
type Checker struct {
	deps   []dependency
	logger zerolog.Logger
}

// NewChecker creates a checker with no dependencies.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{logger: logger.With().Str("component", "health").Logger()}
}

// Require adds a dependency the client cannot work without. When it fails
// the client is down.
func (c *Checker) Require(name string, p Pinger) {
	c.deps = append(c.deps, dependency{name: name, pinger: p, required: true})
}

// Optional adds a dependency whose failure leaves the client degraded. The
// remote API is one: containers keep their last state while it is away.
func (c *Checker) Optional(name string, p Pinger) {
	c.deps = append(c.deps, dependency{name: name, pinger: p})
}

// Check pings every dependency in the order added.
func (c *Checker) Check(ctx context.Context) Report {
	r := Report{Status: StatusOK, Dependencies: make(map[string]Status, len(c.deps)), CheckedAt: time.Now()}
	for _, d := range c.deps {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		err := d.pinger.Ping(pctx)
		cancel()

		if err == nil {
			r.Dependencies[d.name] = StatusOK
			continue
		}
		c.logger.Warn().Err(err).Str("dependency", d.name).Msg("ping failed")
		if d.required {
			r.Dependencies[d.name] = StatusDown
			r.Status = StatusDown
			continue
		}
		r.Dependencies[d.name] = StatusDegraded
		if r.Status == StatusOK {
			r.Status = StatusDegraded
		}
	}
	return r
}

// ReadinessHandler writes the Report, with 503 when the client is down.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		r := c.Check(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if r.Ready() {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(r)
	}
}
