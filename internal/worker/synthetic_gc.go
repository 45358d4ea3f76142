package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SyntheticCollector removes synthetic preferences that outlived their TTL.
type SyntheticCollector interface {
	CollectSynthetic(ctx context.Context, now time.Time) (int64, error)
}

// StartSyntheticGC runs the collector every interval until ctx is cancelled. A
// non-positive interval disables it.
func StartSyntheticGC(ctx context.Context, collector SyntheticCollector, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if collector == nil || interval <= 0 {
		close(done)
		return done
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := collector.CollectSynthetic(ctx, now); err != nil {
					logger.Warn("synthetic preference collection failed", zap.Error(err))
				}
			}
		}
	}()
	return done
}
