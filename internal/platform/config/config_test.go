package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Layering(t *testing.T) {
	t.Run("defaults when no file", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
	})

	t.Run("file overrides defaults and keeps unset keys", func(t *testing.T) {
		path := writeFile(t, `
server:
  addr: ":9000"
auth:
  token_ttl: 30m
kafka:
  brokers: ["localhost:9092"]
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Server.Addr)
		assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
		assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
		assert.Equal(t, 12, cfg.Auth.BcryptCost)
	})

	t.Run("env overrides file", func(t *testing.T) {
		path := writeFile(t, "server:\n  addr: \":9000\"\n")
		t.Setenv("PROVENANT_ADDR", ":7000")
		t.Setenv("TOKEN_TTL", "5m")
		t.Setenv("KAFKA_BROKERS", "a:9092, b:9092")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Server.Addr)
		assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	})

	t.Run("malformed file is an error", func(t *testing.T) {
		_, err := Load(writeFile(t, "server: [unterminated"))
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	t.Run("production refuses development secrets", func(t *testing.T) {
		cfg := Defaults()
		cfg.Server.Environment = EnvironmentProd
		cfg.Database.URL = "postgres://db"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt_signing_key")
	})

	t.Run("production with real secrets passes", func(t *testing.T) {
		cfg := Defaults()
		cfg.Server.Environment = EnvironmentProd
		cfg.Database.URL = "postgres://db"
		cfg.Auth.JWTSigningKey = strings.Repeat("j", 32)
		cfg.Certificate.SigningKey = strings.Repeat("c", 32)
		require.NoError(t, cfg.Validate())
	})

	t.Run("short signing key rejected", func(t *testing.T) {
		cfg := Defaults()
		cfg.Certificate.SigningKey = "short"
		require.Error(t, cfg.Validate())
	})
}
