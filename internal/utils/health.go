package utils

import (
	"context"
	"slices"
	"time"

	"gorm.io/gorm"
)

const healthCheckTimeout = 2 * time.Second

type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  []Service `json:"services"`
}

type Service struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Pinger is a dependency that can report its own reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker pings the database and every optional dependency that is
// configured. Optional dependencies are reported in name order; store only
// providers that are actually enabled.
type HealthChecker struct {
	DB       *gorm.DB
	Optional map[string]Pinger
	now      func() time.Time
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	var services []Service
	overallStatus := "healthy"

	record := func(name string, ping func(ctx context.Context) error) {
		service := Service{Name: name}
		ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		if err := ping(ctx); err != nil {
			service.Status = "down"
			service.Message = err.Error()
			overallStatus = "degraded"
		} else {
			service.Status = "up"
		}
		services = append(services, service)
	}

	if h.DB != nil {
		record("Database", func(ctx context.Context) error {
			sqlDB, err := h.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	}

	names := make([]string, 0, len(h.Optional))
	for name := range h.Optional {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if p := h.Optional[name]; p != nil {
			record(name, p.Ping)
		}
	}

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	return HealthStatus{
		Status:    overallStatus,
		Timestamp: now().UTC(),
		Services:  services,
	}
}
