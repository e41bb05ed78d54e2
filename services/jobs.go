package services

import (
	"context"
	"log"
	"time"
)

// Job intervals
const (
	KarmaDecayJobInterval         = time.Hour
	SubscriptionExpiryJobInterval = time.Hour
)

// RunPeriodic calls fn immediately and then every interval until ctx is
// cancelled. Each run gets its own timeout of one interval.
func RunPeriodic(ctx context.Context, name string, interval time.Duration, fn func(ctx context.Context) (int, error)) {
	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, interval)
		defer cancel()
		n, err := fn(runCtx)
		if err != nil {
			log.Printf("Job %s failed: %v", name, err)
			return
		}
		if n > 0 {
			log.Printf("Job %s processed %d records", name, n)
		}
	}

	run()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("Job %s stopped", name)
			return
		case <-ticker.C:
			run()
		}
	}
}
