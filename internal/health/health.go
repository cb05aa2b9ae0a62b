package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lendlens/lendlens/internal/storage"
	"github.com/lendlens/lendlens/internal/subgraph"
)

// metaQuery is the cheapest probe a TheGraph endpoint answers.
const metaQuery = `{ _meta { block { number } } }`

// Checker performs health checks on application dependencies
type Checker struct {
	store          *storage.Store  // nil when the process does not persist
	client         *subgraph.Client
	probeURL       string          // subgraph endpoint used for reachability
	interval       time.Duration   // expected refresh period, 0 outside daemon mode
	lastRunTime    time.Time
	lastRunSuccess bool
	mu             sync.RWMutex
}

// NewChecker creates a new health checker
func NewChecker(store *storage.Store, client *subgraph.Client, probeURL string, interval time.Duration) *Checker {
	return &Checker{
		store:    store,
		client:   client,
		probeURL: probeURL,
		interval: interval,
	}
}

// UpdateLastRun updates the timestamp and status of the last execution
func (c *Checker) UpdateLastRun(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastRunTime = time.Now()
	c.lastRunSuccess = success
}

// CheckStatus represents the health status of a component
type CheckStatus string

const (
	StatusOK       CheckStatus = "ok"
	StatusDegraded CheckStatus = "degraded"
	StatusError    CheckStatus = "error"
)

// HealthResponse is the JSON response structure
type HealthResponse struct {
	Status    CheckStatus            `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckDetail `json:"checks"`
	Uptime    string                 `json:"uptime,omitempty"`
}

// CheckDetail contains details about a specific health check
type CheckDetail struct {
	Status  CheckStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

var startTime = time.Now()

// Check performs all health checks and returns the aggregated status
func (c *Checker) Check(ctx context.Context) HealthResponse {
	checks := make(map[string]CheckDetail)
	overallStatus := StatusOK

	if c.store != nil {
		dbCheck := c.checkDatabase(ctx)
		checks["database"] = dbCheck
		if dbCheck.Status != StatusOK {
			overallStatus = StatusError
		}
	}

	upstreamCheck := c.checkUpstream(ctx)
	checks["subgraph"] = upstreamCheck
	if upstreamCheck.Status == StatusError && overallStatus == StatusOK {
		overallStatus = StatusDegraded
	}

	if c.interval > 0 {
		daemonCheck := c.checkDaemon()
		checks["daemon"] = daemonCheck
		if daemonCheck.Status != StatusOK && overallStatus == StatusOK {
			overallStatus = StatusDegraded
		}
	}

	return HealthResponse{
		Status:    overallStatus,
		Timestamp: time.Now(),
		Checks:    checks,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
	}
}

// checkDatabase verifies PostgreSQL connectivity
func (c *Checker) checkDatabase(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.store.Ping(ctx); err != nil {
		slog.Error("Health check: database ping failed", "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "database unreachable: " + err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: "database connection healthy",
	}
}

// checkUpstream verifies the probe subgraph endpoint answers queries
func (c *Checker) checkUpstream(ctx context.Context) CheckDetail {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var out struct {
		Meta struct {
			Block struct {
				Number int64 `json:"number"`
			} `json:"block"`
		} `json:"_meta"`
	}
	if err := c.client.Query(ctx, c.probeURL, metaQuery, &out); err != nil {
		slog.Error("Health check: subgraph probe failed", "url", c.probeURL, "error", err)
		return CheckDetail{
			Status:  StatusError,
			Message: "subgraph unreachable: " + err.Error(),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("subgraph healthy at block %d", out.Meta.Block.Number),
	}
}

// checkDaemon verifies the refresh loop is executing at expected intervals
func (c *Checker) checkDaemon() CheckDetail {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.lastRunTime.IsZero() {
		return CheckDetail{
			Status:  StatusOK,
			Message: "refresh not yet executed (startup)",
		}
	}

	if !c.lastRunSuccess {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: "last refresh failed",
		}
	}

	// Allow a 2x interval grace period before flagging staleness
	timeSinceLastRun := time.Since(c.lastRunTime)
	if timeSinceLastRun > c.interval*2 {
		return CheckDetail{
			Status:  StatusDegraded,
			Message: fmt.Sprintf("no refresh in %s (expected every %s)", timeSinceLastRun.Round(time.Second), c.interval),
		}
	}

	return CheckDetail{
		Status:  StatusOK,
		Message: fmt.Sprintf("last refresh %s ago", timeSinceLastRun.Round(time.Second)),
	}
}

// Handler returns an http.HandlerFunc for the health endpoint
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		status := c.Check(r.Context())

		statusCode := http.StatusOK
		if status.Status == StatusError {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)

		if err := json.NewEncoder(w).Encode(status); err != nil {
			slog.Error("Health check: encode response failed", "error", err)
		}
	}
}
