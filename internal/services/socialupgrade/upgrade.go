// Package socialupgrade re-inserts historical social activities, moving
// colliding create dates forward so each stays unique within its scope.
package socialupgrade

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// Outcome of adding one activity.
type Outcome int

const (
	OutcomeInserted Outcome = iota
	OutcomeFailed
)

func (o Outcome) String() string {
	if o == OutcomeInserted {
		return "inserted"
	}
	return "failed"
}

// ActivityResult describes what happened to one activity. Err is set when the
// activity could not be stored; the batch carries on regardless.
type ActivityResult struct {
	Activity           *models.SocialActivity
	OriginalCreateDate int64
	Outcome            Outcome
	Err                error
}

// Shifted reports whether the create date was moved.
func (r *ActivityResult) Shifted() bool {
	return r.Activity != nil && r.Activity.CreateDate != r.OriginalCreateDate
}

// UpgradeResult summarizes a batch.
type UpgradeResult struct {
	Total    int
	Inserted int
	Shifted  int
	Failed   int
	Failures []*ActivityResult
	Duration time.Duration
}

// Upgrader inserts historical activities through an ActivityStore.
type Upgrader struct {
	store   repository.ActivityStore
	dedup   *Deduplicator
	metrics *Metrics
	logger  *zerolog.Logger
}

// Option configures an Upgrader.
type Option func(*Upgrader)

// WithLogger injects a custom logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(u *Upgrader) {
		if l != nil {
			u.logger = l
		}
	}
}

// WithMetrics records outcomes.
func WithMetrics(m *Metrics) Option {
	return func(u *Upgrader) {
		u.metrics = m
	}
}

// NewUpgrader creates an upgrader writing to store.
func NewUpgrader(store repository.ActivityStore, opts ...Option) *Upgrader {
	u := &Upgrader{
		store:  store,
		dedup:  NewDeduplicator(store),
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// AddActivity stores a copy of a under the first free create date of its
// scope. Storage failures are logged and reported on the result only.
func (u *Upgrader) AddActivity(ctx context.Context, a *models.SocialActivity) *ActivityResult {
	stored := *a
	result := &ActivityResult{Activity: &stored, OriginalCreateDate: a.CreateDate}
	log := u.logger.With().
		Int64("activity_id", a.ID).
		Int64("class_name_id", a.ClassNameID).
		Int64("class_pk", a.ClassPK).
		Logger()

	createDate, err := u.dedup.UniqueTimestamp(ctx, a.CreateDate, Scope{ClassNameID: a.ClassNameID, ClassPK: a.ClassPK})
	if err == nil {
		stored.CreateDate = createDate
		if result.Shifted() {
			log.Debug().Int64("from", a.CreateDate).Int64("to", createDate).Msg("moved colliding create date")
		}
		err = u.store.InsertActivity(ctx, &stored)
	}
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Err = err
		log.Warn().Err(err).Msg("unable to add activity")
	}

	u.metrics.record(result)
	return result
}

// Run adds every activity in order. Only cancellation of ctx stops the batch
// early, returning what was done so far together with ctx.Err().
func (u *Upgrader) Run(ctx context.Context, activities []*models.SocialActivity) (*UpgradeResult, error) {
	started := time.Now()
	res := &UpgradeResult{}

	for _, a := range activities {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(started)
			return res, err
		}
		res.Total++

		r := u.AddActivity(ctx, a)
		if r.Outcome == OutcomeFailed {
			res.Failed++
			res.Failures = append(res.Failures, r)
			continue
		}
		res.Inserted++
		if r.Shifted() {
			res.Shifted++
		}
	}

	res.Duration = time.Since(started)
	u.logger.Info().
		Int("total", res.Total).
		Int("inserted", res.Inserted).
		Int("shifted", res.Shifted).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("social activity upgrade finished")
	return res, nil
}
