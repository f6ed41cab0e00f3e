package postgres

import (
	"context"
	"fmt"
)

// HealthCheck probes the journal table, so a reachable server with a
// missing schema still reports unhealthy.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Name() string { return "postgresql" }

func (h *HealthCheck) Required() bool { return true }

func (h *HealthCheck) Ping(ctx context.Context) error {
	var head int64
	if err := h.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM transactions`).Scan(&head); err != nil {
		return fmt.Errorf("journal head: %w", err)
	}
	return nil
}
