package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/agpsystems/agp/internal/models"
)

const (
	// DefaultPruneSchedule runs retention once an hour.
	DefaultPruneSchedule = "@hourly"
	pruneTimeout         = 2 * time.Minute
)

// Pruner deletes journal entries older than the retention window on a cron schedule.
type Pruner struct {
	ctx       context.Context
	cron      *cron.Cron
	journal   models.Journal
	retention time.Duration
	schedule  string
	now       func() time.Time
	log       *logrus.Logger
}

// NewPruner creates a Pruner. A zero retention disables pruning entirely.
func NewPruner(ctx context.Context, journal models.Journal, retention time.Duration, schedule string, log *logrus.Logger) *Pruner {
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}
	return &Pruner{
		ctx:       ctx,
		cron:      cron.New(cron.WithLocation(time.UTC)),
		journal:   journal,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		log:       log,
	}
}

// Enabled reports whether a retention window is configured.
func (p *Pruner) Enabled() bool {
	return p.retention > 0
}

// Start registers the prune job and starts the scheduler.
func (p *Pruner) Start() error {
	if !p.Enabled() {
		p.log.Info("Journal retention disabled, pruner not started")
		return nil
	}

	if _, err := p.cron.AddFunc(p.schedule, p.run); err != nil {
		return err
	}
	p.cron.Start()

	p.log.WithFields(logrus.Fields{
		"schedule":  p.schedule,
		"retention": p.retention.String(),
	}).Info("Journal pruner started")
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
}

func (p *Pruner) run() {
	ctx, cancel := context.WithTimeout(p.ctx, pruneTimeout)
	defer cancel()

	if _, err := p.PruneOnce(ctx); err != nil {
		p.log.WithError(err).Error("Failed to prune journal")
	}
}

// PruneOnce deletes entries older than the retention window and returns the count.
func (p *Pruner) PruneOnce(ctx context.Context) (int64, error) {
	if !p.Enabled() {
		return 0, nil
	}

	cutoff := p.now().Add(-p.retention)
	removed, err := p.journal.Prune(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	p.log.WithFields(logrus.Fields{
		"removed": removed,
		"cutoff":  cutoff.UTC().Format(time.RFC3339),
	}).Info("Journal pruned")
	return removed, nil
}
