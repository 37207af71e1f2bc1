package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/gotrs-io/gotrs-ldapsync/internal/database"
	"github.com/gotrs-io/gotrs-ldapsync/internal/ldap"
	"github.com/gotrs-io/gotrs-ldapsync/internal/logging"
)

var (
	cfg  *Config
	once sync.Once
	mu   sync.RWMutex
)

// Config represents the application configuration
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	LDAP     LDAPConfig     `mapstructure:"ldap"`
	Import   ImportConfig   `mapstructure:"import"`
	API      APIConfig      `mapstructure:"api"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// LDAPConfig is the directory connection plus the attribute mapping tables.
type LDAPConfig struct {
	ldap.Config  `mapstructure:",squash"`
	MappingsFile string        `mapstructure:"mappings_file"`
	Mappings     ldap.Mappings `mapstructure:"mappings"`
}

type ImportConfig struct {
	CompanyID                    int64         `mapstructure:"company_id"`
	ImportPasswordEnabled        bool          `mapstructure:"import_password_enabled"`
	DefaultPassword              string        `mapstructure:"default_password"`
	ExportEnabled                bool          `mapstructure:"export_enabled"`
	CreateRolePerGroup           bool          `mapstructure:"create_role_per_group"`
	AlwaysAutoGenerateScreenName bool          `mapstructure:"always_auto_generate_screen_name"`
	ImportGroups                 bool          `mapstructure:"import_groups"`
	Schedule                     string        `mapstructure:"schedule"`
	Timezone                     string        `mapstructure:"timezone"`
	RunOnStartup                 bool          `mapstructure:"run_on_startup"`
	LockTTL                      time.Duration `mapstructure:"lock_ttl"`
}

type APIConfig struct {
	Addr          string        `mapstructure:"addr"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	TokenDuration time.Duration `mapstructure:"token_duration"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load initializes the configuration with hot reload support
func Load(configPath string) error {
	var err error
	once.Do(func() {
		v := newViper()

		v.SetConfigName("default")
		v.AddConfigPath(configPath)
		if err = v.ReadInConfig(); err != nil {
			err = fmt.Errorf("failed to read default config: %w", err)
			return
		}

		// config.yaml is an optional local overlay
		v.SetConfigName("config")
		if err = v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				err = fmt.Errorf("failed to merge config: %w", err)
				return
			}
			err = nil
		}

		var loaded *Config
		if loaded, err = unmarshal(v); err != nil {
			return
		}
		mu.Lock()
		cfg = loaded
		mu.Unlock()

		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			log.Info().Str("file", e.Name).Msg("config file changed")

			newCfg, err := unmarshal(v)
			if err != nil {
				log.Error().Err(err).Msg("failed to reload config")
				return
			}

			mu.Lock()
			cfg = newCfg
			mu.Unlock()
			log.Info().Msg("configuration reloaded")
		})
	})

	return err
}

// Get returns the current configuration (thread-safe)
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// LoadFromFile loads configuration from a specific file (useful for testing)
func LoadFromFile(configFile string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	loaded, err := unmarshal(v)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	cfg = loaded
	mu.Unlock()
	return loaded, nil
}

// MustLoad loads configuration and panics on error
func MustLoad(configPath string) {
	if err := Load(configPath); err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix("LDAPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "gotrs-ldapsync")
	v.SetDefault("app.env", "development")
	v.SetDefault("database.driver", database.DriverPostgres)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.prefix", "ldapsync:")
	v.SetDefault("ldap.port", 389)
	v.SetDefault("ldap.timeout_seconds", 30)
	v.SetDefault("ldap.page_size", 500)
	v.SetDefault("import.company_id", 1)
	v.SetDefault("import.import_password_enabled", true)
	v.SetDefault("import.import_groups", true)
	v.SetDefault("import.lock_ttl", 30*time.Minute)
	v.SetDefault("import.timezone", "UTC")
	v.SetDefault("api.addr", ":8089")
	v.SetDefault("api.token_duration", 24*time.Hour)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func unmarshal(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if driver, err := database.NormalizeDriver(c.Database.Driver); err == nil {
		c.Database.Driver = driver
	}

	mappings := ldap.DefaultMappings()
	if c.LDAP.MappingsFile != "" {
		fromFile, err := ldap.LoadMappings(c.LDAP.MappingsFile)
		if err != nil {
			return nil, err
		}
		mappings = fromFile
	}
	c.LDAP.Mappings.Canonicalize()
	mappings.Merge(c.LDAP.Mappings)
	c.LDAP.Mappings = mappings
	return c, nil
}

// Validate reports configuration problems that would break a sync run.
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case database.DriverPostgres, database.DriverMySQL, database.DriverSQLite:
	default:
		problems = append(problems, fmt.Sprintf("unsupported database driver %q", c.Database.Driver))
	}
	if c.Database.DSN == "" && c.Database.Driver != database.DriverSQLite && c.Database.Host == "" {
		problems = append(problems, "database host or dsn is required")
	}

	problems = append(problems, ldap.ValidateConfig(&c.LDAP.Config)...)

	if c.Import.CompanyID <= 0 {
		problems = append(problems, "import.company_id must be positive")
	}
	if !c.Import.ImportPasswordEnabled && c.Import.DefaultPassword == "" {
		problems = append(problems, "import.default_password is required when password import is disabled")
	}
	if c.Import.Timezone != "" {
		if _, err := time.LoadLocation(c.Import.Timezone); err != nil {
			problems = append(problems, fmt.Sprintf("import.timezone: %v", err))
		}
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		problems = append(problems, "redis.host is required when redis is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// GetDSN returns the connection string for the configured driver.
// An explicit dsn wins over the individual parts.
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	driver, _ := database.NormalizeDriver(c.Driver)
	switch driver {
	case database.DriverMySQL:
		// clientFoundRows makes RowsAffected count matched rows, which the
		// repositories use for not-found detection.
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true&charset=utf8mb4",
			c.User, c.Password, c.Host, c.Port, c.Name)
	case database.DriverSQLite:
		if c.Name == "" {
			return "file::memory:?cache=shared"
		}
		return c.Name
	default:
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, sslMode)
	}
}

// ConnectionConfig converts the section into database.Open options.
func (c *DatabaseConfig) ConnectionConfig() database.Config {
	return database.Config{
		Driver:          c.Driver,
		DSN:             c.GetDSN(),
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// GetRedisAddr returns the Redis server address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggerConfig converts the section into logging options.
func (c *LoggingConfig) LoggerConfig() logging.Config {
	return logging.Config{Level: c.Level, Format: c.Format, Output: c.Output}
}

// IsProduction returns true if running in production mode
func (c *AppConfig) IsProduction() bool {
	return c.Env == "production"
}
