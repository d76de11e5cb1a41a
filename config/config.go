package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Reconcile ReconcileConfig `yaml:"reconcile"`
	Store     StoreConfig     `yaml:"store"`
	Admin     AdminConfig     `yaml:"admin"`
	Denylist  DenylistConfig  `yaml:"denylist"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// BackendConfig points at the leads/simulation backend the gateway fronts.
type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	ServiceToken   string `yaml:"service_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// ReconcileConfig tunes the lead discovery loop.
type ReconcileConfig struct {
	MaxAttempts           int `yaml:"max_attempts"`
	BackoffBaseSeconds    int `yaml:"backoff_base_seconds"`
	BackoffStepSeconds    int `yaml:"backoff_step_seconds"`
	BackoffCapSeconds     int `yaml:"backoff_cap_seconds"`
	AttemptTimeoutSeconds int `yaml:"attempt_timeout_seconds"`
	EmailWindowMinutes    int `yaml:"email_window_minutes"`
	RecencyMinMinutes     int `yaml:"recency_min_minutes"`
	RecencyMaxMinutes     int `yaml:"recency_max_minutes"`
	GrantTTLHours         int `yaml:"grant_ttl_hours"`
}

type StoreConfig struct {
	Path string `yaml:"path"`
}

type AdminConfig struct {
	Password         string `yaml:"password"`
	PasswordHash     string `yaml:"password_hash"`
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

// DenylistConfig lists seed/test records that must never be adopted as a
// real lead match.
type DenylistConfig struct {
	Names    []string `yaml:"names"`
	Prefixes []string `yaml:"prefixes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()

	GlobalConfig = &cfg
	return &cfg, nil
}

// ApplyDefaults fills every zero-valued tunable with its production default.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Backend.TimeoutSeconds == 0 {
		c.Backend.TimeoutSeconds = 30
	}
	if c.Reconcile.MaxAttempts == 0 {
		c.Reconcile.MaxAttempts = 6
	}
	if c.Reconcile.BackoffBaseSeconds == 0 {
		c.Reconcile.BackoffBaseSeconds = 2
	}
	if c.Reconcile.BackoffStepSeconds == 0 {
		c.Reconcile.BackoffStepSeconds = 2
	}
	if c.Reconcile.BackoffCapSeconds == 0 {
		c.Reconcile.BackoffCapSeconds = 10
	}
	if c.Reconcile.AttemptTimeoutSeconds == 0 {
		c.Reconcile.AttemptTimeoutSeconds = 8
	}
	if c.Reconcile.EmailWindowMinutes == 0 {
		c.Reconcile.EmailWindowMinutes = 10
	}
	if c.Reconcile.RecencyMinMinutes == 0 {
		c.Reconcile.RecencyMinMinutes = 2
	}
	if c.Reconcile.RecencyMaxMinutes == 0 {
		c.Reconcile.RecencyMaxMinutes = 5
	}
	if c.Reconcile.GrantTTLHours == 0 {
		c.Reconcile.GrantTTLHours = 24
	}
	if c.Store.Path == "" {
		c.Store.Path = "gateway.db"
	}
	if c.Admin.TokenExpireHours == 0 {
		c.Admin.TokenExpireHours = 24
	}
	if len(c.Denylist.Names) == 0 {
		c.Denylist.Names = []string{"João Silva", "Maria Teste", "Test User"}
	}
	if len(c.Denylist.Prefixes) == 0 {
		c.Denylist.Prefixes = []string{"temp-", "demo-", "test-", "fallback-"}
	}
}

// Timeout returns the transport-level timeout for backend calls.
func (c *BackendConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AttemptTimeout returns the per-attempt deadline for fetch/validate calls.
func (c *ReconcileConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.AttemptTimeoutSeconds) * time.Second
}

// GrantTTL returns the ceiling after which a stored grant is expired.
func (c *ReconcileConfig) GrantTTL() time.Duration {
	return time.Duration(c.GrantTTLHours) * time.Hour
}

// Backoff returns the delay after the given attempt number (1-based).
// The schedule is non-decreasing and bounded by the configured cap.
func (c *ReconcileConfig) Backoff(attempt int) time.Duration {
	base := time.Duration(c.BackoffBaseSeconds) * time.Second
	step := time.Duration(c.BackoffStepSeconds) * time.Second
	limit := time.Duration(c.BackoffCapSeconds) * time.Second

	delay := base + time.Duration(attempt-1)*step
	if delay > limit {
		delay = limit
	}
	return delay
}
