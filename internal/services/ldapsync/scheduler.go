package ldapsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
)

// Syncer runs one batch sync.
type Syncer interface {
	Sync(ctx context.Context, trigger string) (*models.SyncHistory, error)
}

var _ Syncer = (*Service)(nil)

// Scheduler triggers batch syncs on a cron schedule.
type Scheduler struct {
	syncer    Syncer
	schedule  cron.Schedule
	spec      string
	cron      *cron.Cron
	logger    *zerolog.Logger
	onStartup bool
	rootCtx   context.Context
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewScheduler parses spec, a five field cron expression or descriptor such
// as "@hourly".
func NewScheduler(syncer Syncer, spec string, opts ...Option) (*Scheduler, error) {
	o := buildOptions(opts)

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("parse sync schedule %q: %w", spec, err)
	}

	logger := cronLogger{o.Logger}
	return &Scheduler{
		syncer:   syncer,
		schedule: schedule,
		spec:     spec,
		cron: cron.New(
			cron.WithLocation(o.Location),
			cron.WithParser(parser),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		logger:    o.Logger,
		onStartup: o.OnStartup,
	}, nil
}

// Next returns the first activation after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Run schedules syncs until ctx is cancelled, then waits for a running sync
// to return.
func (s *Scheduler) Run(ctx context.Context) error {
	s.startOnce.Do(func() {
		s.rootCtx = ctx
		s.cron.Schedule(s.schedule, cron.FuncJob(func() { s.runOnce(models.SyncTriggerScheduled) }))
		s.cron.Start()
		s.logger.Info().Str("schedule", s.spec).Time("next", s.Next(time.Now())).Msg("directory sync scheduler started")
		if s.onStartup {
			go s.runOnce(models.SyncTriggerStartup)
		}
	})

	<-ctx.Done()
	s.stop()
	return nil
}

func (s *Scheduler) stop() {
	s.stopOnce.Do(func() {
		<-s.cron.Stop().Done()
		s.logger.Info().Msg("directory sync scheduler stopped")
	})
}

func (s *Scheduler) runOnce(trigger string) {
	h, err := s.syncer.Sync(s.rootCtx, trigger)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		s.logger.Info().Str("trigger", trigger).Msg("directory sync skipped, a run is already in progress")
	case err != nil:
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("directory sync failed")
	case h != nil:
		s.logger.Debug().Str("run_id", h.ID).Str("trigger", trigger).Msg("scheduled directory sync done")
	}
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	logger *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
