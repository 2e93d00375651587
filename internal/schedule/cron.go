package schedule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// CronRunner drives registered tasks on cron schedules. Task errors are
// logged, never propagated: one failing tick must not take down the others.
type CronRunner struct {
	cron *cron.Cron
	ctx  context.Context
}

func NewCronRunner(ctx context.Context) *CronRunner {
	return &CronRunner{
		cron: cron.New(cron.WithSeconds()),
		ctx:  ctx,
	}
}

// Add registers a task with a 6-field cron spec (or "@every 20s" style).
func (r *CronRunner) Add(spec string, task Task) error {
	_, err := r.cron.AddFunc(spec, func() {
		if err := task.Run(r.ctx); err != nil {
			slog.Error("scheduled task failed", "task", task.Name(), "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register task %s: %w", task.Name(), err)
	}
	return nil
}

func (r *CronRunner) Start() {
	r.cron.Start()
}

// Stop halts scheduling and waits for in-flight task runs to finish.
func (r *CronRunner) Stop() {
	<-r.cron.Stop().Done()
}
