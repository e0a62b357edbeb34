package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfig(t *testing.T) {
	t.Run("Explicit file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yml")
		content := []byte(`
mode: production
store:
  driver: memory
jwt:
  secretKey: from-file
  issuer: test-issuer
  accessTokenTTL: 5m
server:
  loginRatePerMinute: 5
catalog:
  defaultPageSize: 10
  maxPageSize: 50
`)
		require.NoError(t, os.WriteFile(path, content, 0o600))

		cfg, err := InitConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.Mode)
		assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
		assert.Equal(t, "from-file", cfg.JWT.SecretKey)
		assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTokenTTL)
		assert.Equal(t, 10, cfg.Catalog.DefaultPageSize)
		assert.Equal(t, 5, cfg.Server.LoginRatePerMinute)
		assert.Equal(t, 8, cfg.Password.MinLength, "missing values fall back to defaults")
		assert.NoError(t, cfg.Validate())
	})

	t.Run("Environment overrides file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yml")
		require.NoError(t, os.WriteFile(path, []byte("jwt:\n  secretKey: from-file\n"), 0o600))
		t.Setenv("JWT_SECRETKEY", "from-env")

		cfg, err := InitConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.JWT.SecretKey)
	})

	t.Run("Missing explicit file", func(t *testing.T) {
		_, err := InitConfig(filepath.Join(t.TempDir(), "nope.yml"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		c.applyDefaults()
		c.JWT.SecretKey = "secret"
		return c
	}

	t.Run("Valid", func(t *testing.T) {
		c := base()
		assert.NoError(t, c.Validate())
		assert.Equal(t, 20, c.Server.LoginRatePerMinute)
		assert.Equal(t, MaxPageSize, c.Catalog.MaxPageSize)
	})

	t.Run("Empty secret", func(t *testing.T) {
		c := base()
		c.JWT.SecretKey = ""
		assert.Error(t, c.Validate())
	})

	t.Run("Unknown driver", func(t *testing.T) {
		c := base()
		c.Store.Driver = "mongo"
		assert.Error(t, c.Validate())
	})

	t.Run("Default page size above max", func(t *testing.T) {
		c := base()
		c.Catalog.DefaultPageSize = 2000
		assert.Error(t, c.Validate())
	})

	t.Run("Max page size above limit", func(t *testing.T) {
		c := base()
		c.Catalog.MaxPageSize = MaxPageSize + 1
		assert.ErrorContains(t, c.Validate(), "catalog.maxPageSize")
	})
}
