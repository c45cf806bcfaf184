package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type SessionExpirer interface {
	ExpireStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// ExpireStaleSessions reconciles checkout sessions left open for longer than
// olderThan. Paid ones are fulfilled, abandoned ones expire.
func ExpireStaleSessions(expirer SessionExpirer, olderThan time.Duration, log *zap.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		settled, err := expirer.ExpireStale(ctx, olderThan)
		if err != nil {
			log.Error("stale session sweep failed", zap.Error(err))
			return
		}
		if settled > 0 {
			log.Info("stale sessions settled", zap.Int("count", settled))
		}
	}
}
