// Package schedule wraps robfig/cron/v3 to repeat the agent's run loop on
// an optional --schedule cron expression, grounded on
// _examples/ternarybob-quaero's scheduler service — trimmed from that
// service's many-job registry down to the single recurring job the CLI
// entrypoint needs.
package schedule

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Runner repeats a single function on a cron schedule until its context
// is cancelled.
type Runner struct {
	logger arbor.ILogger
}

// New creates a Runner.
func New(logger arbor.ILogger) *Runner {
	return &Runner{logger: logger}
}

// Start runs fn once immediately, then again on every tick of cronExpr,
// blocking until ctx is cancelled. A run already in flight when a tick
// fires is never started a second time in parallel — matching the
// teacher's globalMu-guarded executeJob, trimmed to a single job.
func (r *Runner) Start(ctx context.Context, cronExpr string, fn func() error) error {
	c := cron.New()

	running := make(chan struct{}, 1)
	running <- struct{}{}

	run := func() {
		select {
		case <-running:
		default:
			r.logger.Warn().Msg("schedule: previous run still in progress — skipping this tick")
			return
		}
		defer func() { running <- struct{}{} }()

		if err := fn(); err != nil {
			r.logger.Error().Err(err).Msg("schedule: scheduled run failed")
		}
	}

	if _, err := c.AddFunc(cronExpr, run); err != nil {
		return fmt.Errorf("schedule: invalid cron expression %q: %w", cronExpr, err)
	}

	r.logger.Info().Str("schedule", cronExpr).Msg("schedule: running once immediately, then on schedule")
	run()

	c.Start()
	defer func() {
		stopCtx := c.Stop()
		<-stopCtx.Done()
	}()

	<-ctx.Done()
	r.logger.Info().Msg("schedule: stopping")
	return nil
}
