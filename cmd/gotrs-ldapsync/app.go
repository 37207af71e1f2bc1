package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/config"
	"github.com/gotrs-io/gotrs-ldapsync/internal/database"
	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/lock"
	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
	"github.com/gotrs-io/gotrs-ldapsync/internal/repository"
	"github.com/gotrs-io/gotrs-ldapsync/internal/services/ldapsync"
)

// app holds the wired dependencies shared by the commands.
type app struct {
	cfg      *config.Config
	logger   *zerolog.Logger
	db       *sqlx.DB
	registry *prometheus.Registry
	locker   *lock.RedisLocker
	provider *ldap.Provider
	service  *ldapsync.Service
	metrics  *ldapsync.Metrics
	location *time.Location
}

// openDB connects to the configured database and applies pending
// migrations when auto_migrate is set.
func openDB(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*sqlx.DB, error) {
	db, err := database.Open(ctx, cfg.Database.ConnectionConfig())
	if err != nil {
		return nil, err
	}
	if cfg.Database.AutoMigrate {
		applied, err := database.RunMigrations(ctx, db, *logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		if applied > 0 {
			logger.Info().Int("applied", applied).Msg("database migrations applied")
		}
	}
	return db, nil
}

// newApp wires the sync service from the loaded configuration.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.Default()
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	loc, err := time.LoadLocation(cfg.Import.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	a.location = loc

	if a.db, err = openDB(ctx, cfg, logger); err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		a.locker, err = lock.NewRedisLocker(ctx, lock.Config{
			Addr:      cfg.Redis.GetRedisAddr(),
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.Prefix,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	audit := func(ctx context.Context, ev repository.ChangeEvent) {
		logging.FromContext(ctx).Debug().
			Str("entity", ev.Entity).
			Str("op", ev.Op).
			Int64("id", ev.ID).
			Stringer("origin", ev.Origin.Source).
			Msg("record written")
	}
	users := repository.NewUserRepository(a.db, audit)
	groups := repository.NewGroupRepository(a.db, audit)
	roles := repository.NewRoleRepository(a.db, audit)
	history := repository.NewSyncHistoryRepository(a.db)

	settings := ldapsync.Settings{
		ServerID:              cfg.LDAP.ServerID,
		ImportPasswordEnabled: cfg.Import.ImportPasswordEnabled,
		DefaultPassword:       cfg.Import.DefaultPassword,
		ExportEnabled:         cfg.Import.ExportEnabled,
		CreateRolePerGroup:    cfg.Import.CreateRolePerGroup,
		ImportGroups:          cfg.Import.ImportGroups,
	}
	a.metrics = ldapsync.NewMetrics(a.registry)

	opts := []ldapsync.Option{
		ldapsync.WithLogger(logger),
		ldapsync.WithSettings(settings),
		ldapsync.WithMetrics(a.metrics),
		ldapsync.WithMapper(ldap.TableMapper{AlwaysAutoGenerateScreenName: cfg.Import.AlwaysAutoGenerateScreenName}),
		ldapsync.WithLocation(loc),
		ldapsync.WithRunOnStartup(cfg.Import.RunOnStartup),
	}
	if a.locker != nil {
		opts = append(opts, ldapsync.WithRunLock(a.locker, cfg.Import.LockTTL))
	}

	a.provider = ldap.NewProvider(&cfg.LDAP.Config)
	importer := ldapsync.NewImporter(users, groups, roles, cfg.LDAP.Mappings, opts...)
	a.service = ldapsync.NewService(importer, a.provider, history, cfg.Import.CompanyID, cfg.LDAP.Mappings, opts...)
	return a, nil
}

// Close releases the database and Redis connections.
func (a *app) Close() {
	if a.locker != nil {
		if err := a.locker.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if a.db != nil {
		a.db.Close()
	}
}
