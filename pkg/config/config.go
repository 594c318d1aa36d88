// Package config loads the bridge configuration.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/txn2/dremio-simplejson/pkg/engine"
	"github.com/txn2/dremio-simplejson/pkg/sqlguard"
)

// Config holds the complete bridge configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Log     LogConfig      `yaml:"log"`
	Engine  EngineConfig   `yaml:"engine"`
	Targets []TargetConfig `yaml:"targets"`
	Test    TestConfig     `yaml:"test_query"`
	Auth    AuthConfig     `yaml:"auth"`
	Audit   AuditConfig    `yaml:"audit"`
}

// ServerConfig configures the inbound HTTP server.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// LoginOnStart authenticates against the engine before serving.
	// A failed startup login is logged, not fatal.
	LoginOnStart bool `yaml:"login_on_start"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// EngineConfig configures the remote query engine.
type EngineConfig struct {
	Host            string        `yaml:"host"`
	LoginPath       string        `yaml:"login_path"` // "/apiv2/login" or "/api/v3/login"
	APIBase         string        `yaml:"api_base"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval"`
	PollBackoff     string        `yaml:"poll_backoff"` // "constant", "exponential"
	MaxWait         time.Duration `yaml:"max_wait"`
	PageSize        int           `yaml:"page_size"`
}

// TargetConfig maps a dashboard target name to SQL. When SQL is empty the
// target selects every column of the table named like the target.
type TargetConfig struct {
	Name string `yaml:"name"`
	SQL  string `yaml:"sql"`
}

// TestConfig configures the diagnostic /test-query endpoint.
type TestConfig struct {
	SQL string `yaml:"sql"`
}

// AuthConfig configures inbound request authentication.
type AuthConfig struct {
	Basic  BasicAuthConfig  `yaml:"basic"`
	Bearer BearerAuthConfig `yaml:"bearer"`
}

// BasicAuthConfig configures HTTP basic auth with a bcrypt password hash.
type BasicAuthConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// BearerAuthConfig configures HS256 JWT bearer auth.
type BearerAuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// AuditConfig configures the PostgreSQL query audit log.
type AuditConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	RetentionDays   int           `yaml:"retention_days"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// Environment variables that override file values.
const (
	EnvEngineHost = "DREMIO_HOST"
	EnvEngineUser = "DREMIO_USER"
	EnvEnginePass = "DREMIO_PASS"
	EnvAuditDSN   = "AUDIT_DSN"
)

const (
	defaultAddress     = ":3000"
	defaultTarget      = "user_status"
	defaultTestSQL     = `SELECT * FROM "user_status" LIMIT 10`
	defaultCleanupTick = time.Hour

	// writeSlack is added to engine.max_wait for the default write timeout.
	writeSlack = time.Minute
)

// LoadConfig loads configuration from a file. An empty path yields the
// defaults plus environment overrides.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		// #nosec G304 -- path is from CLI args, controlled by admin
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}

		data = []byte(expandEnvVars(string(data)))

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv(EnvEngineHost); v != "" {
		cfg.Engine.Host = v
	}
	if v := os.Getenv(EnvEngineUser); v != "" {
		cfg.Engine.Username = v
	}
	if v := os.Getenv(EnvEnginePass); v != "" {
		cfg.Engine.Password = v
	}
	if v := os.Getenv(EnvAuditDSN); v != "" {
		cfg.Audit.DSN = v
	}
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Engine.LoginPath == "" {
		cfg.Engine.LoginPath = engine.DefaultLoginPath
	}
	if cfg.Engine.APIBase == "" {
		cfg.Engine.APIBase = engine.DefaultAPIBase
	}
	if cfg.Engine.RequestTimeout == 0 {
		cfg.Engine.RequestTimeout = engine.DefaultRequestTimeout
	}
	if cfg.Engine.PollInterval == 0 {
		cfg.Engine.PollInterval = engine.DefaultPollInterval
	}
	if cfg.Engine.MaxPollInterval == 0 {
		cfg.Engine.MaxPollInterval = engine.DefaultMaxPollInterval
	}
	if cfg.Engine.PollBackoff == "" {
		cfg.Engine.PollBackoff = engine.BackoffConstant
	}
	if cfg.Engine.MaxWait == 0 {
		cfg.Engine.MaxWait = engine.DefaultMaxWait
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = cfg.Engine.MaxWait + writeSlack
	}
	if cfg.Engine.PageSize == 0 {
		cfg.Engine.PageSize = engine.DefaultPageSize
	}
	if len(cfg.Targets) == 0 {
		cfg.Targets = []TargetConfig{{Name: defaultTarget}}
	}
	if cfg.Test.SQL == "" {
		cfg.Test.SQL = defaultTestSQL
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = 30
	}
	if cfg.Audit.CleanupInterval == 0 {
		cfg.Audit.CleanupInterval = defaultCleanupTick
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.Host == "" {
		errs = append(errs, "engine.host is required (or set "+EnvEngineHost+")")
	}
	if c.Engine.Username == "" || c.Engine.Password == "" {
		errs = append(errs, "engine.username and engine.password are required (or set "+EnvEngineUser+"/"+EnvEnginePass+")")
	}
	if c.Engine.PollBackoff != engine.BackoffConstant && c.Engine.PollBackoff != engine.BackoffExponential {
		errs = append(errs, "engine.poll_backoff must be constant or exponential")
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout <= c.Engine.MaxWait {
		errs = append(errs, fmt.Sprintf("server.write_timeout (%s) must exceed engine.max_wait (%s)",
			c.Server.WriteTimeout, c.Engine.MaxWait))
	}
	if c.Engine.PageSize < 1 || c.Engine.PageSize > engine.DefaultPageSize {
		errs = append(errs, fmt.Sprintf("engine.page_size must be between 1 and %d", engine.DefaultPageSize))
	}

	errs = append(errs, validateTargets(c.Targets)...)

	if err := sqlguard.CheckReadOnly(c.Test.SQL); err != nil {
		errs = append(errs, fmt.Sprintf("test_query.sql: %v", err))
	}
	if c.Auth.Basic.Enabled && (c.Auth.Basic.Username == "" || c.Auth.Basic.PasswordHash == "") {
		errs = append(errs, "auth.basic.username and auth.basic.password_hash are required when basic auth is enabled")
	}
	if c.Auth.Bearer.Enabled && c.Auth.Bearer.Secret == "" {
		errs = append(errs, "auth.bearer.secret is required when bearer auth is enabled")
	}
	if c.Audit.Enabled && c.Audit.DSN == "" {
		errs = append(errs, "audit.dsn is required when audit is enabled (or set "+EnvAuditDSN+")")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateTargets(targets []TargetConfig) []string {
	var errs []string
	seen := make(map[string]bool, len(targets))
	for i, t := range targets {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("targets[%d].name is required", i))
			continue
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Sprintf("targets[%d]: duplicate target %q", i, t.Name))
		}
		seen[t.Name] = true
		if t.SQL == "" {
			continue
		}
		if err := sqlguard.CheckReadOnly(t.SQL); err != nil {
			errs = append(errs, fmt.Sprintf("targets[%d] %q: %v", i, t.Name, err))
		}
	}
	return errs
}

// EngineConfig converts the engine section into an engine.Config.
func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Host:      c.Engine.Host,
		LoginPath: c.Engine.LoginPath,
		APIBase:   c.Engine.APIBase,
		Credentials: engine.Credentials{
			Username: c.Engine.Username,
			Password: c.Engine.Password,
		},
		RequestTimeout:  c.Engine.RequestTimeout,
		PollInterval:    c.Engine.PollInterval,
		MaxPollInterval: c.Engine.MaxPollInterval,
		PollBackoff:     c.Engine.PollBackoff,
		MaxWait:         c.Engine.MaxWait,
		PageSize:        c.Engine.PageSize,
	}
}
