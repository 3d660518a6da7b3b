package watch

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/dealsentry/dealsentry/internal/persistence"
)

// Runner schedules periodic evaluation sweeps over all active watches.
// Evaluations run sequentially: the upstream adapter's shared rate
// limit makes parallel sweeps pointless.
type Runner struct {
	evaluator *Evaluator
	watches   persistence.WatchRepo
	schedule  string
	perWatch  time.Duration

	cron *cron.Cron
}

// NewRunner builds a runner. schedule is a cron expression ("@every
// 15m"); perWatch bounds each evaluation.
func NewRunner(evaluator *Evaluator, watches persistence.WatchRepo, schedule string, perWatch time.Duration) *Runner {
	if schedule == "" {
		schedule = "@every 15m"
	}
	if perWatch <= 0 {
		perWatch = 30 * time.Second
	}
	return &Runner{
		evaluator: evaluator,
		watches:   watches,
		schedule:  schedule,
		perWatch:  perWatch,
	}
}

// Start registers the sweep and begins the scheduler. ctx bounds every
// sweep started after it; call Stop to drain.
func (r *Runner) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(r.schedule, func() { r.Sweep(ctx) })
	if err != nil {
		return err
	}
	r.cron = c
	c.Start()
	log.Info().Str("schedule", r.schedule).Msg("watch runner started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (r *Runner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Sweep evaluates every active watch once. Per-watch failures are
// logged and counted by the evaluator's state machine; the sweep keeps
// going.
func (r *Runner) Sweep(ctx context.Context) {
	watches, err := r.watches.ListActive(ctx, 0)
	if err != nil {
		log.Error().Err(err).Msg("watch sweep aborted: list failed")
		return
	}
	var emitted int
	for i := range watches {
		if ctx.Err() != nil {
			log.Warn().Int("remaining", len(watches)-i).Msg("watch sweep interrupted")
			return
		}
		wctx, cancel := context.WithTimeout(ctx, r.perWatch)
		alert, err := r.evaluator.EvaluateWatch(wctx, &watches[i])
		cancel()
		if err != nil {
			log.Warn().Err(err).Int64("watch", watches[i].ID).Msg("watch evaluation failed")
			continue
		}
		if alert != nil {
			emitted++
		}
	}
	log.Info().Int("watches", len(watches)).Int("alerts", emitted).Msg("watch sweep complete")
}
