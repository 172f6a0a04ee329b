package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFromViperDefaults(t *testing.T) {
	v := newViper()
	v.Set("DATABASE_URL", "postgres://localhost/eventflow")
	v.Set("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.HTTPPort)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 24*time.Hour, cfg.JWTExpiresIn)
	require.Equal(t, "invoices", cfg.Storage.Bucket)
	require.False(t, cfg.Storage.Enabled())
	require.False(t, cfg.Redis.Enabled())
	require.False(t, cfg.SMTP.Enabled())
}

func TestFromViperFailsFast(t *testing.T) {
	v := newViper()
	v.Set("DATABASE_URL", "")
	v.Set("JWT_SECRET", "short")

	_, err := FromViper(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "DATABASE_URL")
	require.Contains(t, err.Error(), "JWT_SECRET")
}

func TestStorageRequiresPublicURL(t *testing.T) {
	v := newViper()
	v.Set("DATABASE_URL", "postgres://localhost/eventflow")
	v.Set("JWT_SECRET", "0123456789abcdef0123")
	v.Set("STORAGE_ENDPOINT", "storage.eventflow.local:9000")

	_, err := FromViper(v)
	require.ErrorContains(t, err, "STORAGE_PUBLIC_BASE_URL")

	v.Set("STORAGE_PUBLIC_BASE_URL", "https://project.supabase.co/storage/v1/object/public/invoices/")
	cfg, err := FromViper(v)
	require.NoError(t, err)
	require.Equal(t, "https://project.supabase.co/storage/v1/object/public/invoices", cfg.Storage.PublicBaseURL)
}

func TestInvalidTTL(t *testing.T) {
	v := newViper()
	v.Set("JWT_EXPIRES_IN", "tomorrow")
	_, err := FromViper(v)
	require.ErrorContains(t, err, "JWT_EXPIRES_IN")
}
