package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.ServerPort)
	assert.Equal(t, StorageMemory, cfg.StorageDriver)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, 50, cfg.DefaultLogLimit)
	assert.Equal(t, 200, cfg.MaxLogLimit)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
}

func TestLoadConfig_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "secret")

	_, err := LoadConfig()

	assert.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoadConfig_RequiresSecret(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()

	assert.EqualError(t, err, "JWT_SECRET is required")
}

func TestLoadConfig_DefaultLimitClampedToMax(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ATTENDANCE_DEFAULT_LIMIT", "500")
	t.Setenv("ATTENDANCE_MAX_LIMIT", "100")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, 100, cfg.DefaultLogLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestLoadConfig_InvalidExpiry(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_EXPIRY", "tomorrow")

	_, err := LoadConfig()

	assert.EqualError(t, err, "invalid JWT_EXPIRY format")
}

func TestLoadKioskConfig(t *testing.T) {
	t.Setenv("KIOSK_TOKEN", "tok")
	t.Setenv("KIOSK_API_URL", "http://api.local/")
	t.Setenv("KIOSK_RECONCILE_INTERVAL", "30s")

	cfg, err := LoadKioskConfig()

	require.NoError(t, err)
	assert.Equal(t, "http://api.local", cfg.APIURL)
	assert.Equal(t, 30*time.Second, cfg.ReconcileInterval)
}
