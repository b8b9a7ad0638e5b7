// Package health runs named readiness checks and serves the /healthz
// endpoint. Checks are probed on demand and periodically in the
// background so the most recent result is always available.
package health

import (
	"context"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Check probes one dependency. A nil return means healthy.
type Check func(ctx context.Context) error

// Config holds health check configuration.
type Config struct {
	CheckInterval time.Duration
	ProbeTimeout  time.Duration
}

// Result is the outcome of one check run.
type Result struct {
	Healthy bool      `json:"healthy"`
	Error   string    `json:"error,omitempty"`
	Checked time.Time `json:"checked"`
}

// Checker runs registered readiness checks.
type Checker struct {
	mu      sync.Mutex
	checks  map[string]Check
	results map[string]Result
	cfg     Config
	logger  *zap.Logger
}

// New creates a Checker with no checks registered.
func New(cfg Config, logger *zap.Logger) *Checker {
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	return &Checker{
		checks:  make(map[string]Check),
		results: make(map[string]Result),
		cfg:     cfg,
		logger:  logger,
	}
}

// Register adds a named check. Registering an existing name replaces it.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Start runs the probe loop until quit is signalled.
func (c *Checker) Start(quit <-chan os.Signal) {
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.RunAll(context.Background())
		case <-quit:
			return
		}
	}
}

// RunAll probes every registered check and returns the results.
func (c *Checker) RunAll(ctx context.Context) map[string]Result {
	c.mu.Lock()
	names := make([]string, 0, len(c.checks))
	checks := make([]Check, 0, len(c.checks))
	for name, check := range c.checks {
		names = append(names, name)
		checks = append(checks, check)
	}
	c.mu.Unlock()

	results := make(map[string]Result, len(names))
	for i, check := range checks {
		probeCtx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
		err := check(probeCtx)
		cancel()

		r := Result{Healthy: err == nil, Checked: time.Now().UTC()}
		if err != nil {
			r.Error = err.Error()
			c.logger.Warn("health check failed",
				zap.String("check", names[i]), zap.Error(err))
		}
		results[names[i]] = r
	}

	c.mu.Lock()
	for name, r := range results {
		c.results[name] = r
	}
	c.mu.Unlock()
	return results
}

// Healthy reports whether every check passed on its last run.
func (c *Checker) Healthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.results {
		if !r.Healthy {
			return false
		}
	}
	return true
}

// Handler returns a gin handler serving the aggregate health state. It
// re-probes on every request so the endpoint reflects dependencies live.
func (c *Checker) Handler() gin.HandlerFunc {
	return func(g *gin.Context) {
		results := c.RunAll(g.Request.Context())

		status := http.StatusOK
		healthy := true
		for _, r := range results {
			if !r.Healthy {
				status = http.StatusServiceUnavailable
				healthy = false
				break
			}
		}
		g.JSON(status, gin.H{
			"healthy": healthy,
			"checks":  results,
		})
	}
}
