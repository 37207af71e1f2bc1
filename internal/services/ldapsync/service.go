package ldapsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/models"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
)

// maxErrorLog caps the per-run error lines kept in sync history.
const maxErrorLog = 100

// Directory is the directory server a batch run reads from.
type Directory interface {
	Connect(ctx context.Context) error
	Close()
	SearchUsers(ctx context.Context, attributes []string, fn func(*ldap.Attributes) error) error
	SearchGroups(ctx context.Context, attributes []string, fn func(*ldap.Attributes) error) error
	TestConnection(ctx context.Context) error
}

// RunLocker serializes batch runs across processes.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

var _ Directory = (*ldap.Provider)(nil)

// Service drives batch imports of a whole directory server.
type Service struct {
	importer  DirectorySyncEngine
	directory Directory
	history   repository.SyncHistoryStore
	companyID int64
	mappings  ldap.Mappings
	settings  Settings
	locker    RunLocker
	lockTTL   time.Duration
	metrics   *Metrics
	logger    *zerolog.Logger
	now       func() time.Time

	runMu   sync.Mutex
	running atomic.Bool
}

// NewService creates a batch driver for one company and directory server.
func NewService(importer DirectorySyncEngine, directory Directory, history repository.SyncHistoryStore, companyID int64, mappings ldap.Mappings, opts ...Option) *Service {
	o := buildOptions(opts)
	return &Service{
		importer:  importer,
		directory: directory,
		history:   history,
		companyID: companyID,
		mappings:  mappings,
		settings:  o.Settings,
		locker:    o.Locker,
		lockTTL:   o.LockTTL,
		metrics:   o.Metrics,
		logger:    o.Logger,
		now:       o.Now,
	}
}

// Running reports whether a batch run is in progress in this process.
func (s *Service) Running() bool {
	return s.running.Load()
}

// Sync imports every user, then every group, of the directory. Failures of
// single entries are counted and logged on the returned history; only
// directory or history store failures make Sync return an error.
func (s *Service) Sync(ctx context.Context, trigger string) (*models.SyncHistory, error) {
	if !s.runMu.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.runMu.Unlock()
	s.running.Store(true)
	defer s.running.Store(false)

	h := &models.SyncHistory{
		ID:          uuid.NewString(),
		CompanyID:   s.companyID,
		ServerID:    s.settings.ServerID,
		StartTime:   s.now().UTC(),
		Status:      models.SyncStatusRunning,
		TriggeredBy: trigger,
	}
	log := s.logger.With().Str("run_id", h.ID).Str("trigger", trigger).Logger()

	if s.locker != nil {
		release, acquired, err := s.locker.TryLock(ctx, s.lockKey(), s.lockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			log.Info().Msg("another instance is running the directory sync, skipping")
			h.Status = models.SyncStatusSkipped
			if err := s.finish(ctx, h, nil, false); err != nil {
				log.Warn().Err(err).Msg("failed to record skipped run")
			}
			return h, ErrSyncInProgress
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn().Err(err).Msg("failed to release run lock")
			}
		}()
	}

	if err := s.history.CreateSyncHistory(ctx, h); err != nil {
		return nil, fmt.Errorf("create sync history: %w", err)
	}
	log.Info().Int64("company_id", s.companyID).Int64("server_id", h.ServerID).Msg("directory sync started")

	var errs []string
	runErr := s.run(ctx, h, &errs, &log)
	if runErr != nil {
		errs = append(errs, runErr.Error())
		h.Status = models.SyncStatusFailed
	} else {
		h.Status = models.SyncStatusCompleted
	}
	h.ErrorLog = strings.Join(errs, "\n")

	if err := s.finish(ctx, h, runErr, true); err != nil {
		return h, err
	}

	ev := log.Info()
	if runErr != nil {
		ev = log.Error().Err(runErr)
	}
	ev.Str("status", h.Status).
		Int("users_found", h.UsersFound).
		Int("users_created", h.UsersCreated).
		Int("users_updated", h.UsersUpdated).
		Int("users_password_only", h.UsersPasswordOnly).
		Int("users_skipped", h.UsersSkipped).
		Int("groups_found", h.GroupsFound).
		Int("errors", h.ErrorCount).
		Int64("duration_ms", h.Duration).
		Msg("directory sync finished")

	return h, runErr
}

func (s *Service) run(ctx context.Context, h *models.SyncHistory, errs *[]string, log *zerolog.Logger) error {
	if err := s.directory.Connect(ctx); err != nil {
		return fmt.Errorf("connect to directory: %w", err)
	}
	defer s.directory.Close()

	record := func(kind, dn string, err error) {
		h.ErrorCount++
		s.metrics.failure(kind)
		log.Warn().Err(err).Str("dn", dn).Msgf("%s import failed", kind)
		if len(*errs) < maxErrorLog {
			*errs = append(*errs, fmt.Sprintf("%s %s: %v", kind, dn, err))
		}
	}

	passwordAttr := s.mappings.User[ldap.UserPassword]
	err := s.directory.SearchUsers(ctx, s.mappings.UserAttributeNames(), func(attrs *ldap.Attributes) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.UsersFound++

		password := ""
		if passwordAttr != "" {
			password = attrs.Get(passwordAttr)
		}
		rec, err := s.importer.ImportUser(ctx, s.companyID, attrs, password)
		if err != nil {
			record("user", attrs.DN, err)
			return nil
		}
		if rec.TimestampErr != nil {
			log.Debug().Err(rec.TimestampErr).Str("dn", attrs.DN).Msg("imported with unreadable modify timestamp")
		}

		switch rec.Decision {
		case models.SyncDecisionCreate:
			h.UsersCreated++
		case models.SyncDecisionFullUpdate:
			h.UsersUpdated++
		case models.SyncDecisionUpdatePasswordOnly:
			h.UsersPasswordOnly++
		default:
			h.UsersSkipped++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("search users: %w", err)
	}

	if !s.settings.ImportGroups {
		return nil
	}

	err = s.directory.SearchGroups(ctx, s.mappings.GroupAttributeNames(), func(attrs *ldap.Attributes) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.GroupsFound++

		res, err := s.importer.ImportUserGroup(ctx, s.companyID, attrs)
		if err != nil {
			record("group", attrs.DN, err)
			return nil
		}
		switch {
		case res.CreateErr != nil:
			record("group", attrs.DN, res.CreateErr)
		case res.Created:
			h.GroupsCreated++
		case res.Updated:
			h.GroupsUpdated++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("search groups: %w", err)
	}
	return nil
}

// finish stamps the end of the run and persists it. A skipped run is only
// inserted, a started run is updated.
func (s *Service) finish(ctx context.Context, h *models.SyncHistory, runErr error, started bool) error {
	end := s.now().UTC()
	h.EndTime = &end
	h.Duration = end.Sub(h.StartTime).Milliseconds()
	s.metrics.run(h.Status, end.Sub(h.StartTime), end)

	saveCtx := context.WithoutCancel(ctx)
	var err error
	if started {
		err = s.history.UpdateSyncHistory(saveCtx, h)
	} else {
		err = s.history.CreateSyncHistory(saveCtx, h)
	}
	if err != nil {
		err = fmt.Errorf("save sync history: %w", err)
		if runErr != nil {
			return errors.Join(runErr, err)
		}
		return err
	}
	return nil
}

func (s *Service) lockKey() string {
	return fmt.Sprintf("run:%d:%d", s.companyID, s.settings.ServerID)
}

// LastRun returns the most recent batch run.
func (s *Service) LastRun(ctx context.Context) (*models.SyncHistory, error) {
	return s.history.GetLatestSyncHistory(ctx, s.companyID, s.settings.ServerID)
}

// History lists recent batch runs, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]*models.SyncHistory, error) {
	return s.history.ListSyncHistory(ctx, s.companyID, limit)
}

// TestConnection binds to the directory server and reports the result.
func (s *Service) TestConnection(ctx context.Context) error {
	return s.directory.TestConnection(ctx)
}
