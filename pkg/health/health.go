// Package health provides liveness and readiness probe endpoints. Checks run
// periodically in the background; the HTTP handlers only read cached state,
// so probes stay fast even when a dependency is slow.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency, returning nil when healthy.
type CheckFunc func(ctx context.Context) error

// check holds one registered probe and its last observed state. The state
// fields are atomics because run() writes them from a background goroutine
// while HTTP handlers read them.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.fn(ctx)
	c.lastErr.Store(&err)
	c.healthy.Store(err == nil)
}

// Service aggregates probes and serves them as Kubernetes-style endpoints.
// It starts not ready; call SetReady(true) after initialization and
// SetReady(false) when draining.
type Service struct {
	ready  atomic.Bool
	mu     sync.Mutex
	live   []*check
	readyC []*check
	cancel context.CancelFunc
}

// New creates an empty health Service.
func New() *Service {
	return &Service{}
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	c := &check{name: name, timeout: timeout, fn: fn}
	c.healthy.Store(true)
	return c
}

// AddLivenessCheck registers a probe for process health.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = append(s.live, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a probe for traffic readiness, typically a
// dependency like the database.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyC = append(s.readyC, newCheck(name, timeout, fn))
}

// Start runs all registered checks in the background at the given interval.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	checks := append(append([]*check(nil), s.live...), s.readyC...)
	s.mu.Unlock()

	for _, c := range checks {
		go func(c *check) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}(c)
	}
}

// Stop cancels the background check goroutines.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

type probeResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the liveness probe.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	checks := append([]*check(nil), s.live...)
	s.mu.Unlock()
	serveProbe(w, checks, true)
}

// ReadyEndpoint serves the readiness probe; it fails while the manual gate
// is down regardless of check state.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	checks := append([]*check(nil), s.readyC...)
	s.mu.Unlock()
	serveProbe(w, checks, s.ready.Load())
}

func serveProbe(w http.ResponseWriter, checks []*check, gate bool) {
	resp := probeResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
	healthy := gate

	for _, c := range checks {
		if c.healthy.Load() {
			resp.Checks[c.name] = "ok"
			continue
		}
		healthy = false
		msg := "failed"
		if p := c.lastErr.Load(); p != nil && *p != nil {
			msg = (*p).Error()
		}
		resp.Checks[c.name] = msg
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
		resp.Status = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
