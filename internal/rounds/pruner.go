package rounds

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// StartPruner schedules Ledger.Prune every interval. The caller owns the
// returned scheduler and must Shutdown it.
func StartPruner(l Ledger, every time.Duration, clock clockwork.Clock, logger zerolog.Logger) (gocron.Scheduler, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("new scheduler: %w", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n, err := l.Prune(ctx, clock.Now())
			if err != nil {
				logger.Warn().Err(err).Msg("prune scored tickets")
				return
			}
			if n > 0 {
				logger.Info().Int64("removed", n).Msg("pruned scored tickets")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("prune-scored-tickets"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule pruning: %w", err)
	}
	s.Start()
	return s, nil
}
