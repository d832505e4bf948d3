package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-portal/internal/common/errors"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("DIRECTORY_URL", "https://directory.example.com")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DatabaseType)
	assert.Equal(t, time.Second, cfg.GateDelay)
	assert.Equal(t, 30*time.Second, cfg.StatusCacheTTL)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestLoadRejectsShortJWTSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestLoadRequiresDirectoryURL(t *testing.T) {
	setRequired(t)
	t.Setenv("DIRECTORY_URL", "")

	_, err := Load()
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestAdminPanelNeedsServiceKey(t *testing.T) {
	setRequired(t)
	t.Setenv("ADMIN_PANEL_URL", "https://panel.internal")

	_, err := Load()
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	t.Setenv("ADMIN_SERVICE_KEY", "panel-shared-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "panel-shared-key", cfg.AdminServiceKey)
}

func TestOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_TYPE", "postgres")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("GATE_DELAY", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres", cfg.DatabaseType)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 250*time.Millisecond, cfg.GateDelay)
}

func TestInvalidDatabaseType(t *testing.T) {
	setRequired(t)
	t.Setenv("DATABASE_TYPE", "oracle")

	_, err := Load()
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}
