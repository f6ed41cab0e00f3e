package ports

import "context"

// HealthChecker probes one backing dependency of the ledger.
type HealthChecker interface {
	Name() string
	Ping(ctx context.Context) error
	// Required reports whether ledger writes stop working without the
	// dependency. Optional ones only degrade the service.
	Required() bool
}
