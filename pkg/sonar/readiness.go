package sonar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"sonar-setup/internal/domain"
)

// DefaultProbeInterval is the fixed delay between two readiness probes.
const DefaultProbeInterval = time.Second

// WaitReady polls the server version endpoint every ProbeInterval until it
// answers 2xx, at most maxAttempts times. Transport errors and non-2xx
// statuses count as "not ready yet". When the budget is exhausted it returns
// an *domain.UnreachableError.
func (c *Client) WaitReady(ctx context.Context, maxAttempts int) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	interval := c.ProbeInterval
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	c.Logger.Debug("waiting for server", "url", c.BaseURL, "max_attempts", maxAttempts, "interval", interval)

	attempt := 0
	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewConstant(interval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		c.Logger.Debug("readiness probe", "attempt", attempt)

		resp, err := c.send(ctx, http.MethodGet, PathServerVersion, nil, nil)
		if err != nil {
			return retry.RetryableError(err)
		}
		_, _ = ReadBody(resp)
		if !IsSuccess(resp.StatusCode) {
			return retry.RetryableError(fmt.Errorf("readiness probe: HTTP %d", resp.StatusCode))
		}
		return nil
	})
	if err == nil {
		c.Logger.Info("server is ready", "url", c.BaseURL, "attempts", attempt)
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("wait for server: %w", ctxErr)
	}
	return domain.ErrUnreachable(c.BaseURL, attempt, err)
}
