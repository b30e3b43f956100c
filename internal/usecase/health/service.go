package health

import (
	"context"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckUnknown indicates a service that has not been probed yet.
	CheckUnknown CheckResult = "unknown"
)

// Report aggregates health check results.
type Report struct {
	Status   Status
	Checks   map[string]CheckResult
	Services map[domain.Service]domain.Availability
}

// Service coordinates health checks.
type Service struct {
	catalog  CatalogPinger
	upstream AvailabilityReader
}

// New creates a Service. upstream can be nil.
func New(catalog CatalogPinger, upstream AvailabilityReader) *Service {
	return &Service{catalog: catalog, upstream: upstream}
}

// Check pings the catalog and reads upstream state from the monitor
// without probing the services again.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.catalog.Ping(ctx); err != nil {
		checks["catalog"] = CheckError
	} else {
		checks["catalog"] = CheckOK
	}

	var services map[domain.Service]domain.Availability
	if s.upstream != nil {
		services = s.upstream.Snapshot()
		for svc, st := range services {
			switch {
			case st.Healthy:
				checks[string(svc)] = CheckOK
			case !st.Checked():
				checks[string(svc)] = CheckUnknown
			default:
				checks[string(svc)] = CheckError
			}
		}
	}

	status := Healthy
	for _, v := range checks {
		if v != CheckOK {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks, Services: services}
}
