package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/catalog-api/config"
)

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("connection refused")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWaitForDB(t *testing.T) {
	ctx := context.Background()
	base := retry.NewConstant(time.Millisecond)

	t.Run("Succeeds after transient failures", func(t *testing.T) {
		p := &flakyPinger{failures: 2}
		err := waitForDB(ctx, p, discardLogger(), base)
		require.NoError(t, err)
		assert.Equal(t, 3, p.calls)
	})

	t.Run("Gives up after max retries", func(t *testing.T) {
		p := &flakyPinger{failures: 100}
		err := waitForDB(ctx, p, discardLogger(), base)
		require.Error(t, err)
		assert.Equal(t, defaultRetries+1, p.calls)
	})
}

func TestNewDatabaseConfig(t *testing.T) {
	t.Run("Builds URL", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Repositories.Postgres.Host = "db"
		cfg.Repositories.Postgres.Port = "5432"
		cfg.Repositories.Postgres.Username = "catalog"
		cfg.Repositories.Postgres.Password = "p@ss"
		cfg.Repositories.Postgres.DB = "catalog"

		dbCfg, err := NewDatabaseConfig(cfg, discardLogger())
		require.NoError(t, err)

		u, err := url.Parse(dbCfg.ConnectionURL)
		require.NoError(t, err)
		assert.Equal(t, "postgresql", u.Scheme)
		assert.Equal(t, "db:5432", u.Host)
		assert.Equal(t, "/catalog", u.Path)
		assert.Equal(t, "disable", u.Query().Get("sslmode"))
		pw, _ := u.User.Password()
		assert.Equal(t, "p@ss", pw)
	})

	t.Run("Missing host", func(t *testing.T) {
		_, err := NewDatabaseConfig(&config.Config{}, discardLogger())
		assert.Error(t, err)
	})
}

func TestRunMigrationsRejectsBadScheme(t *testing.T) {
	err := RunMigrations("mysql://localhost/catalog", discardLogger())
	assert.Error(t, err)
}
