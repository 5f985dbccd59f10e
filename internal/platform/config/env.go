package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func applyEnv(cfg *Config) {
	cfg.Server.Addr = envOrDefault("PROVENANT_ADDR", cfg.Server.Addr)
	cfg.Server.Environment = envOrDefault("PROVENANT_ENV", cfg.Server.Environment)
	cfg.Server.OpsToken = envOrDefault("OPS_TOKEN", cfg.Server.OpsToken)
	cfg.Logging.Level = envOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = envOrDefault("LOG_FORMAT", cfg.Logging.Format)

	cfg.Database.URL = envOrDefault("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = envInt("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.AutoMigrate = envBool("DB_AUTO_MIGRATE", cfg.Database.AutoMigrate)

	cfg.Redis.URL = envOrDefault("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.PoolSize = envInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize)

	cfg.Kafka.Brokers = envCSV("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.TopicPrefix = envOrDefault("KAFKA_TOPIC_PREFIX", cfg.Kafka.TopicPrefix)

	cfg.Auth.JWTSigningKey = envOrDefault("JWT_SIGNING_KEY", cfg.Auth.JWTSigningKey)
	cfg.Auth.TokenTTL = envDuration("TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.BcryptCost = envInt("BCRYPT_COST", cfg.Auth.BcryptCost)
	cfg.Auth.LockoutThreshold = envInt("LOGIN_LOCKOUT_THRESHOLD", cfg.Auth.LockoutThreshold)
	cfg.Auth.LockoutWindow = envDuration("LOGIN_LOCKOUT_WINDOW", cfg.Auth.LockoutWindow)
	cfg.Auth.BootstrapAdmin = envOrDefault("BOOTSTRAP_ADMIN_USERNAME", cfg.Auth.BootstrapAdmin)
	cfg.Auth.BootstrapSecret = envOrDefault("BOOTSTRAP_ADMIN_PASSWORD", cfg.Auth.BootstrapSecret)

	cfg.Certificate.SigningKey = envOrDefault("CERTIFICATE_SIGNING_KEY", cfg.Certificate.SigningKey)
	cfg.Certificate.PublicBaseURL = envOrDefault("PUBLIC_BASE_URL", cfg.Certificate.PublicBaseURL)

	cfg.Verification.RateLimitPerMinute = envInt("VERIFY_RATE_LIMIT_PER_MINUTE", cfg.Verification.RateLimitPerMinute)
	cfg.Verification.RateLimitDisabled = envBool("VERIFY_RATE_LIMIT_DISABLED", cfg.Verification.RateLimitDisabled)

	cfg.Audit.OpsSampleRate = envFloat("AUDIT_OPS_SAMPLE_RATE", cfg.Audit.OpsSampleRate)
	cfg.Audit.VerificationSampleRate = envFloat("AUDIT_VERIFICATION_SAMPLE_RATE", cfg.Audit.VerificationSampleRate)
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envCSV(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
