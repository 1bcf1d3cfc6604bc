package cron

import (
	"context"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/daybook"
)

const daybookBatchSize = 100

type DaybookJobs struct {
	outbox *daybook.Outbox
	client daybook.Notifier
}

func NewDaybookJobs(outbox *daybook.Outbox, client daybook.Notifier) *DaybookJobs {
	return &DaybookJobs{outbox: outbox, client: client}
}

func (j *DaybookJobs) RegisterJobs(scheduler *Scheduler, every time.Duration) {
	scheduler.AddJob("drain_daybook_outbox", every, 0, j.DrainOutbox)
}

// DrainOutbox delivers queued daybook entries.
func (j *DaybookJobs) DrainOutbox(ctx context.Context) error {
	delivered, err := j.outbox.Drain(ctx, j.client, daybookBatchSize)
	if delivered > 0 {
		slog.Info("Cron: daybook entries delivered", "count", delivered)
	}
	return err
}
