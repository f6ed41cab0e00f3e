package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"custodial-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const healthProbeTimeout = 2 * time.Second

type dependencyHealth struct {
	Status   string `json:"status"`
	Required bool   `json:"required"`
	Error    string `json:"error,omitempty"`
}

// HealthCheck probes every dependency concurrently. A failing required
// dependency makes the service unhealthy (503); a failing optional one only
// marks it degraded.
func HealthCheck(version string, checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			mu   sync.Mutex
			deps = make(map[string]dependencyHealth, len(checkers))
		)

		g, ctx := errgroup.WithContext(c.Request.Context())
		for _, checker := range checkers {
			g.Go(func() error {
				probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
				defer cancel()

				dep := dependencyHealth{Status: "healthy", Required: checker.Required()}
				if err := checker.Ping(probeCtx); err != nil {
					dep.Status = "unhealthy"
					dep.Error = err.Error()
				}

				mu.Lock()
				deps[checker.Name()] = dep
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()

		status, code := "healthy", http.StatusOK
		for _, dep := range deps {
			if dep.Status == "healthy" {
				continue
			}
			if dep.Required {
				status, code = "unhealthy", http.StatusServiceUnavailable
				break
			}
			status = "degraded"
		}

		c.JSON(code, gin.H{
			"status":       status,
			"version":      version,
			"dependencies": deps,
		})
	}
}
