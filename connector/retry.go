package connector

import (
	"context"
	"log/slog"
	"time"
)

const defaultBaseDelay = time.Second

// retry calls fn until it succeeds, cfg.MaxRetries retries are spent or ctx
// is done. The delay between attempts grows by cfg.Backoff (default 2) up to
// cfg.MaxDelay.
func retry[T any](ctx context.Context, cfg *RetryConfig, log *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if cfg == nil {
		return fn(ctx)
	}

	delay := cfg.BaseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}

	var err error
	for attempt := 0; ; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= cfg.MaxRetries {
			return zero, err
		}

		log.Warn("connection attempt failed, retrying",
			"attempt", attempt+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
		delay = nextDelay(cfg, delay)
	}
}

func nextDelay(cfg *RetryConfig, delay time.Duration) time.Duration {
	factor := cfg.Backoff
	if factor <= 1 {
		factor = 2
	}
	next := time.Duration(float64(delay) * factor)
	if cfg.MaxDelay > 0 && next > cfg.MaxDelay {
		next = cfg.MaxDelay
	}
	return next
}
