package service

import (
	"context"
	"fmt"
	"time"
)

// Pinger is a dependency whose reachability decides readiness
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthService defines the interface for checking application health
type HealthService interface {
	// Check pings every dependency and reports "ok" or the error per name
	Check(ctx context.Context) map[string]string
}

type healthService struct {
	deps map[string]Pinger
}

// NewHealthService creates a health service over the named dependencies,
// e.g. {"app_db": users, "queue_db": queue}.
func NewHealthService(deps map[string]Pinger) HealthService {
	return &healthService{deps: deps}
}

func (s *healthService) Check(ctx context.Context) map[string]string {
	status := make(map[string]string, len(s.deps))
	for name, dep := range s.deps {
		// A hanging dependency must not hang the probe.
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := dep.Ping(pingCtx); err != nil {
			status[name] = fmt.Sprintf("error: %s", err.Error())
		} else {
			status[name] = "ok"
		}
		cancel()
	}
	return status
}
