package main

import (
	"testing"

	"eventflow/internal/auth"
	"eventflow/internal/config"
	"eventflow/internal/models"
	"eventflow/internal/notify"
	"eventflow/internal/storage"
	"eventflow/internal/testfixtures"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedDefaultAdmin(t *testing.T) {
	db := testfixtures.OpenDB(t)
	lg := zap.NewNop().Sugar()
	cfg := config.Config{AdminEmail: "admin@eventflow.test", AdminPassword: "change-me-now"}

	require.NoError(t, seedDefaultAdmin(db, cfg, lg))
	require.NoError(t, seedDefaultAdmin(db, cfg, lg))

	var users []models.User
	require.NoError(t, db.Find(&users).Error)
	require.Len(t, users, 1)
	require.Equal(t, models.RoleAdmin, users[0].Role)
	require.Equal(t, models.UserValidated, users[0].Status)
	require.NoError(t, auth.CheckPassword(users[0].PasswordHash, "change-me-now"))

	require.NoError(t, seedDefaultAdmin(db, config.Config{}, lg))
}

func TestFallbackCollaborators(t *testing.T) {
	lg := zap.NewNop().Sugar()

	p, err := buildPublisher(config.StorageConfig{}, lg)
	require.NoError(t, err)
	require.IsType(t, storage.Unconfigured{}, p)

	n, err := buildNotifier(config.SMTPConfig{}, lg)
	require.NoError(t, err)
	require.IsType(t, &notify.Log{}, n)
}
