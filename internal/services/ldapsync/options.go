package ldapsync

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
)

// Settings are the company-wide import preferences.
type Settings struct {
	ServerID              int64
	ImportPasswordEnabled bool
	DefaultPassword       string
	ExportEnabled         bool
	CreateRolePerGroup    bool
	ImportGroups          bool
}

// DefaultSettings imports directory passwords and groups.
func DefaultSettings() Settings {
	return Settings{ImportPasswordEnabled: true, ImportGroups: true}
}

type options struct {
	Logger      *zerolog.Logger
	Settings    Settings
	ScreenNames ScreenNameGenerator
	Mapper      ldap.Mapper
	Transformer ldap.Transformer
	Metrics     *Metrics
	Locker      RunLocker
	LockTTL     time.Duration
	Now         func() time.Time
	Location    *time.Location
	OnStartup   bool
}

// Option applies configuration to the sync services.
type Option func(*options)

func defaultOptions() options {
	return options{
		Logger:      logging.Default(),
		Settings:    DefaultSettings(),
		Mapper:      ldap.TableMapper{},
		Transformer: ldap.IdentityTransformer{},
		LockTTL:     30 * time.Minute,
		Now:         time.Now,
		Location:    time.UTC,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logging.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// WithLogger injects a custom logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithSettings replaces the import preferences.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.Settings = s
	}
}

// WithScreenNameGenerator replaces the default screen name generator.
func WithScreenNameGenerator(g ScreenNameGenerator) Option {
	return func(o *options) {
		o.ScreenNames = g
	}
}

// WithMapper replaces the attribute mapper.
func WithMapper(m ldap.Mapper) Option {
	return func(o *options) {
		o.Mapper = m
	}
}

// WithTransformer applies t to raw attributes before mapping.
func WithTransformer(t ldap.Transformer) Option {
	return func(o *options) {
		o.Transformer = t
	}
}

// WithMetrics records import outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.Metrics = m
	}
}

// WithRunLock guards batch runs with locker for ttl.
func WithRunLock(locker RunLocker, ttl time.Duration) Option {
	return func(o *options) {
		o.Locker = locker
		if ttl > 0 {
			o.LockTTL = ttl
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.Now = now
	}
}

// WithLocation sets the time zone cron schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.Location = loc
		}
	}
}

// WithRunOnStartup makes the scheduler run one sync as soon as it starts.
func WithRunOnStartup(enabled bool) Option {
	return func(o *options) {
		o.OnStartup = enabled
	}
}
