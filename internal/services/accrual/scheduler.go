package accrual

import (
	"context"
	"time"

	"github.com/credixa-git/crypto-app-be/internal/logger"
)

// Scheduler fires the accrual engine once per calendar day, shortly
// after midnight UTC. It provides at-most-once-per-day invocation on a
// single node; the engine's own date guard catches anything beyond that
// (an operator re-run, a restart straddling midnight).
type Scheduler struct {
	engine *Engine
	log    *logger.Logger
}

func NewScheduler(engine *Engine, log *logger.Logger) *Scheduler {
	return &Scheduler{engine: engine, log: log}
}

// Start blocks until ctx is cancelled, running the engine at each UTC
// midnight. A failed run is logged and the scheduler waits for the next
// day; it never exits on engine errors.
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		next := nextMidnightUTC(time.Now())
		s.log.Infow("Accrual scheduler sleeping", "next_run", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.engine.RunDailyAccrual(ctx); err != nil {
			s.log.Errorw("Accrual run failed", "error", err.Error())
		}
	}
}

func nextMidnightUTC(now time.Time) time.Time {
	year, month, day := now.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
