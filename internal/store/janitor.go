package store

import (
	"context"
	"log/slog"
	"time"
)

// ExpireFunc is told about each room the janitor removes
type ExpireFunc func(code string, at time.Time)

// RunJanitor sweeps idle rooms every interval until ctx is done. A zero ttl
// disables it.
func RunJanitor(ctx context.Context, s *Registry, interval, ttl time.Duration, logger *slog.Logger, onExpire ExpireFunc) {
	if ttl <= 0 {
		logger.Info("lobby janitor disabled")
		return
	}
	if interval <= 0 {
		interval = ttl / 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired := s.Sweep(ttl)
			if len(expired) == 0 {
				continue
			}
			logger.Info("expired idle rooms", "count", len(expired), "codes", expired, "remaining", s.Len())
			if onExpire == nil {
				continue
			}
			at := s.deps.Now()
			for _, code := range expired {
				onExpire(code, at)
			}
		}
	}
}
