package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pinger reports whether the link store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status is the health report served on /health.
type Status struct {
	OK        bool      `json:"ok"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Database  bool      `json:"database"`
	API       bool      `json:"api"`
}

// HealthMonitor checks the store on demand and, when started, periodically,
// logging every change of state.
type HealthMonitor struct {
	store    Pinger
	version  string
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu    sync.Mutex
	known *bool // last observed database state, nil before the first check
}

// NewHealthMonitor creates and returns a new instance of HealthMonitor.
func NewHealthMonitor(store Pinger, version string, interval time.Duration, logger *slog.Logger) *HealthMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthMonitor{
		store:    store,
		version:  version,
		interval: interval,
		timeout:  5 * time.Second,
		logger:   logger,
	}
}

// Check pings the store once. The API is up by construction when this runs.
func (m *HealthMonitor) Check(ctx context.Context) Status {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.store.Ping(ctx)
	healthy := err == nil
	m.observe(healthy, err)

	return Status{
		OK:        healthy,
		Version:   m.version,
		Timestamp: time.Now().UTC(),
		Database:  healthy,
		API:       true,
	}
}

// Start runs Check every interval until ctx is cancelled. A zero interval
// returns immediately.
func (m *HealthMonitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	m.logger.Info("starting health monitor", "interval", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("health monitor stopped")
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

func (m *HealthMonitor) observe(healthy bool, err error) {
	m.mu.Lock()
	previous := m.known
	m.known = &healthy
	m.mu.Unlock()

	switch {
	case previous == nil:
		m.logger.Info("initial store state", "state", formatState(healthy), "error", errString(err))
	case *previous != healthy:
		if healthy {
			m.logger.Info("store state changed", "from", formatState(*previous), "to", formatState(healthy))
		} else {
			m.logger.Error("store state changed", "from", formatState(*previous), "to", formatState(healthy), "error", errString(err))
		}
	}
}

// formatState makes the state more readable in logs.
func formatState(healthy bool) string {
	if healthy {
		return "REACHABLE"
	}
	return "UNREACHABLE"
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
