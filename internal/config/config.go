// Package config loads PingMeDaddy's YAML configuration file, applying
// environment-variable overrides and generating a random admin credential
// on first run.
package config

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config is the full set of runtime tunables, persisted as YAML so a
// redeployed instance keeps its admin credential and JWT secret across
// restarts.
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	AppPort     string `yaml:"app_port"`

	AdminUsername     string `yaml:"admin_username"`
	AdminPasswordHash string `yaml:"admin_password_hash"`
	JWTSecret         string `yaml:"jwt_secret"`
	AuthTokenMinutes  int    `yaml:"auth_token_minutes"`

	PingTimeoutSeconds   int `yaml:"ping_timeout_seconds"`
	PingConcurrencyLimit int `yaml:"ping_concurrency_limit"`

	TracerouteBinary string   `yaml:"traceroute_binary,omitempty"`
	CORSOrigins      []string `yaml:"cors_origins,omitempty"`

	RedisURL      string `yaml:"redis_url,omitempty"`
	GeoIPMMDBPath string `yaml:"geoip_mmdb_path,omitempty"`
}

// PingTimeout returns the configured ping timeout as a time.Duration.
func (c *Config) PingTimeout() time.Duration {
	return time.Duration(c.PingTimeoutSeconds) * time.Second
}

// TokenLifetime returns how long an issued JWT stays valid.
func (c *Config) TokenLifetime() time.Duration {
	return time.Duration(c.AuthTokenMinutes) * time.Minute
}

func defaults() Config {
	return Config{
		AppPort:              "8080",
		AdminUsername:        "admin",
		AuthTokenMinutes:     60,
		PingTimeoutSeconds:   2,
		PingConcurrencyLimit: 50,
	}
}

// Load reads path if it exists (a missing file leaves the built-in
// defaults) and applies environment overrides. It never generates
// credentials or returns a plaintext password; only LoadOrInit does.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// LoadOrInit is Load plus first-run bootstrap: if the loaded config has no
// admin password hash, a random password is generated, hashed, and the
// config (including a fresh JWT secret) is persisted to path. The plaintext
// password is returned only in this case; zero value otherwise.
func LoadOrInit(path string) (cfg *Config, generatedPassword string, err error) {
	cfg, err = Load(path)
	if err != nil {
		return nil, "", err
	}

	if cfg.AdminPasswordHash != "" && cfg.JWTSecret != "" {
		return cfg, "", nil
	}

	var password string
	if cfg.AdminPasswordHash == "" {
		password = randomString(16)
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, "", fmt.Errorf("config: hash admin password: %w", err)
		}
		cfg.AdminPasswordHash = string(hash)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = randomString(64)
	}

	if err := Save(path, cfg); err != nil {
		return nil, "", err
	}
	return cfg, password, nil
}

// Save persists cfg as YAML at path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AppPort, "APP_PORT")
	overrideString(&cfg.AdminUsername, "ADMIN_USERNAME")
	overrideString(&cfg.JWTSecret, "AUTH_SECRET")
	overrideString(&cfg.RedisURL, "REDIS_URL")
	overrideString(&cfg.GeoIPMMDBPath, "GEOIP_MMDB_PATH")
	overrideString(&cfg.TracerouteBinary, "TRACEROUTE_BINARY")
	overrideInt(&cfg.PingTimeoutSeconds, "PING_TIMEOUT_SECONDS")
	overrideInt(&cfg.PingConcurrencyLimit, "PING_CONCURRENCY_LIMIT")
	overrideInt(&cfg.AuthTokenMinutes, "AUTH_TOKEN_MINUTES")
}

func overrideString(field *string, envVar string) {
	if v := os.Getenv(envVar); v != "" {
		*field = v
	}
}

func overrideInt(field *int, envVar string) {
	v := os.Getenv(envVar)
	if v == "" {
		return
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
		*field = n
	}
}

func randomString(length int) string {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	out := make([]byte, length)
	for i := range out {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		out[i] = charset[n.Int64()]
	}
	return string(out)
}
