package services

import (
	"context"

	"github.com/poyrazK/clinicrm/internal/core/ports"
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthService struct {
	deps map[string]Pinger
}

// NewHealthService probes every named dependency on each check.
func NewHealthService(deps map[string]Pinger) ports.HealthChecker {
	return &healthService{deps: deps}
}

func (s *healthService) HealthCheck(ctx context.Context) map[string]error {
	out := make(map[string]error, len(s.deps))
	for name, dep := range s.deps {
		if dep == nil {
			continue
		}
		out[name] = dep.Ping(ctx)
	}
	return out
}
