package health

import (
	"context"

	"github.com/kailas-cloud/shelfrank/internal/domain"
)

// CatalogPinger checks catalog store availability.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

// AvailabilityReader exposes the monitor's last-known upstream state.
type AvailabilityReader interface {
	Snapshot() map[domain.Service]domain.Availability
}
