package backend

import (
	"context"
	"net/http"
	"time"
)

// Probe performs one liveness check against GET /health. It never fails outward:
// any error, timeout or status other than 200 reports false.
func (c *Client) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	log := c.log.With("operation", "health")
	startedAt := time.Now()

	resp, err := c.http.R().SetContext(ctx).Get(healthPath)
	if err != nil {
		log.Warn("Bot service health check failed",
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"error", classifyTransportError(err),
		)
		return false
	}

	if resp.StatusCode() != http.StatusOK {
		log.Warn("Bot service health check failed",
			"duration_ms", time.Since(startedAt).Milliseconds(),
			"status", resp.StatusCode(),
		)
		return false
	}

	log.Info("Bot service is healthy", "duration_ms", time.Since(startedAt).Milliseconds())
	return true
}
