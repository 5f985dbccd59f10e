// Package config resolves runtime configuration in priority order:
// defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	devJWTSigningKey    = "dev-secret-key-change-in-production"
	devCertificateKey   = "dev-certificate-key-change-in-production"
	EnvironmentDev      = "development"
	EnvironmentProd     = "production"
	defaultConfigEnvVar = "PROVENANT_CONFIG"
)

// Config is the resolved runtime configuration.
type Config struct {
	Server       Server       `yaml:"server"`
	Logging      Logging      `yaml:"logging"`
	Database     Database     `yaml:"database"`
	Redis        RedisConfig  `yaml:"redis"`
	Kafka        Kafka        `yaml:"kafka"`
	Auth         Auth         `yaml:"auth"`
	Certificate  Certificate  `yaml:"certificate"`
	Verification Verification `yaml:"verification"`
	ScanLog      ScanLog      `yaml:"scan_log"`
	Audit        Audit        `yaml:"audit"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	Environment     string        `yaml:"environment"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// OpsToken guards /metrics when set.
	OpsToken string `yaml:"ops_token"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Database is optional; without a URL the in-memory stores are used.
type Database struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// RedisConfig is optional; without a URL login lockout is tracked in memory.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// Kafka is optional; without brokers the audit outbox is not relayed.
type Kafka struct {
	Brokers           []string      `yaml:"brokers"`
	ClientID          string        `yaml:"client_id"`
	TopicPrefix       string        `yaml:"topic_prefix"`
	Partitions        int32         `yaml:"partitions"`
	ReplicationFactor int16         `yaml:"replication_factor"`
	RelayInterval     time.Duration `yaml:"relay_interval"`
	RelayBatchSize    int           `yaml:"relay_batch_size"`
}

type Auth struct {
	JWTSigningKey    string        `yaml:"jwt_signing_key"`
	Issuer           string        `yaml:"issuer"`
	Audience         string        `yaml:"audience"`
	TokenTTL         time.Duration `yaml:"token_ttl"`
	BcryptCost       int           `yaml:"bcrypt_cost"`
	LockoutThreshold int           `yaml:"lockout_threshold"`
	LockoutWindow    time.Duration `yaml:"lockout_window"`
	BootstrapAdmin   string        `yaml:"bootstrap_admin"`
	BootstrapSecret  string        `yaml:"bootstrap_password"`
}

type Certificate struct {
	SigningKey    string `yaml:"signing_key"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type Verification struct {
	RateLimitPerMinute int  `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int  `yaml:"rate_limit_burst"`
	RateLimitDisabled  bool `yaml:"rate_limit_disabled"`
}

type ScanLog struct {
	WriteAttempts   int           `yaml:"write_attempts"`
	RetryBufferSize int           `yaml:"retry_buffer_size"`
	RetryInterval   time.Duration `yaml:"retry_interval"`
}

type Audit struct {
	SecurityBufferSize int           `yaml:"security_buffer_size"`
	DrainInterval      time.Duration `yaml:"drain_interval"`
	OpsSampleRate      float64       `yaml:"ops_sample_rate"`

	// VerificationSampleRate overrides OpsSampleRate for verification_performed,
	// the highest-volume ops event.
	VerificationSampleRate float64 `yaml:"verification_sample_rate"`
}

// Defaults returns a configuration suitable for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			Environment:     EnvironmentDev,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: Logging{Level: "info", Format: "json"},
		Database: Database{
			MaxOpenConns:    20,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: Kafka{
			ClientID:          "provenant",
			TopicPrefix:       "provenant.audit",
			Partitions:        3,
			ReplicationFactor: 1,
			RelayInterval:     2 * time.Second,
			RelayBatchSize:    100,
		},
		Auth: Auth{
			JWTSigningKey:    devJWTSigningKey,
			Issuer:           "provenant",
			Audience:         "provenant-api",
			TokenTTL:         15 * time.Minute,
			BcryptCost:       12,
			LockoutThreshold: 5,
			LockoutWindow:    15 * time.Minute,
		},
		Certificate: Certificate{
			SigningKey:    devCertificateKey,
			PublicBaseURL: "http://localhost:8080",
		},
		Verification: Verification{
			RateLimitPerMinute: 60,
			RateLimitBurst:     20,
		},
		ScanLog: ScanLog{
			WriteAttempts:   3,
			RetryBufferSize: 10000,
			RetryInterval:   5 * time.Second,
		},
		Audit: Audit{
			SecurityBufferSize:     10000,
			DrainInterval:          time.Second,
			OpsSampleRate:          1.0,
			VerificationSampleRate: 1.0,
		},
	}
}

// Load resolves configuration from defaults, the YAML file at path (skipped
// when path is empty or missing) and the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv loads configuration using the file named by PROVENANT_CONFIG.
func FromEnv() (Config, error) {
	return Load(os.Getenv(defaultConfigEnvVar))
}

// IsProduction reports whether the server runs in production mode.
func (c Config) IsProduction() bool {
	return c.Server.Environment == EnvironmentProd
}

// Validate rejects configurations that are unsafe or unusable.
func (c Config) Validate() error {
	if c.Auth.TokenTTL <= 0 {
		return errors.New("auth.token_ttl must be positive")
	}
	if len(c.Auth.JWTSigningKey) < 32 {
		return errors.New("auth.jwt_signing_key must be at least 32 bytes")
	}
	if len(c.Certificate.SigningKey) < 32 {
		return errors.New("certificate.signing_key must be at least 32 bytes")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return errors.New("auth.bcrypt_cost must be between 4 and 31")
	}
	if c.ScanLog.WriteAttempts < 1 {
		return errors.New("scan_log.write_attempts must be at least 1")
	}
	if c.IsProduction() {
		if c.Auth.JWTSigningKey == devJWTSigningKey {
			return errors.New("auth.jwt_signing_key must be set in production")
		}
		if c.Certificate.SigningKey == devCertificateKey {
			return errors.New("certificate.signing_key must be set in production")
		}
		if c.Database.URL == "" {
			return errors.New("database.url must be set in production")
		}
	}
	return nil
}
