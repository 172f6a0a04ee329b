package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eventflow/internal/auth"
	"eventflow/internal/config"
	"eventflow/internal/lock"
	"eventflow/internal/logger"
	"eventflow/internal/metrics"
	"eventflow/internal/models"
	"eventflow/internal/notify"
	"eventflow/internal/services/invoicing"
	"eventflow/internal/services/prestation"
	"eventflow/internal/storage"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// app holds the collaborators built once at startup and passed down
// explicitly.
type app struct {
	cfg         config.Config
	lg          *zap.SugaredLogger
	db          *gorm.DB
	redis       *redis.Client
	signer      *auth.Signer
	metrics     *metrics.Metrics
	notifier    notify.Notifier
	prestations *prestation.Service
	invoices    *invoicing.Generator
}

func bootstrap(migrate bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	lg := logger.New(cfg.LogLevel)
	a := &app{cfg: cfg, lg: lg, metrics: metrics.New()}

	a.db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if migrate {
		if err := a.db.AutoMigrate(models.All()...); err != nil {
			return nil, fmt.Errorf("automigrate: %w", err)
		}
		if err := seedDefaultAdmin(a.db, cfg, lg); err != nil {
			return nil, err
		}
	}

	a.signer, err = auth.NewSigner(cfg.JWTSecret, cfg.JWTExpiresIn)
	if err != nil {
		return nil, err
	}

	locker, err := a.buildLocker()
	if err != nil {
		return nil, err
	}
	publisher, err := buildPublisher(cfg.Storage, lg)
	if err != nil {
		return nil, err
	}
	a.notifier, err = buildNotifier(cfg.SMTP, lg)
	if err != nil {
		return nil, err
	}

	a.prestations = prestation.New(a.db, lg, a.metrics)
	a.invoices = invoicing.NewGenerator(a.db, lg, invoicing.NewPDFRenderer(), publisher, locker, a.metrics)
	return a, nil
}

func (a *app) buildLocker() (lock.Locker, error) {
	if !a.cfg.Redis.Enabled() {
		a.lg.Warnw("REDIS_ADDR not set, invoice generation lock is process local")
		return lock.NewLocal(), nil
	}
	a.redis = redis.NewClient(&redis.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return lock.NewRedis(a.redis, 15*time.Minute), nil
}

func buildPublisher(cfg config.StorageConfig, lg *zap.SugaredLogger) (storage.Publisher, error) {
	store, err := storage.New(cfg)
	if errors.Is(err, storage.ErrNotConfigured) {
		lg.Warnw("STORAGE_ENDPOINT not set, invoices will have no document link")
		return storage.Unconfigured{}, nil
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

func buildNotifier(cfg config.SMTPConfig, lg *zap.SugaredLogger) (notify.Notifier, error) {
	if !cfg.Enabled() {
		lg.Warnw("SMTP_HOST not set, notifications are only logged")
		return notify.NewLog(lg), nil
	}
	return notify.NewSMTP(cfg)
}

// seedDefaultAdmin creates the configured administrator once.
func seedDefaultAdmin(db *gorm.DB, cfg config.Config, lg *zap.SugaredLogger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	var count int64
	if err := db.Model(&models.User{}).Where("LOWER(email) = ?", cfg.AdminEmail).Count(&count).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if count > 0 {
		return nil
	}
	if err := auth.ValidatePassword(cfg.AdminPassword); err != nil {
		return fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}
	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	u := models.User{
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Status:       models.UserValidated,
	}
	if err := db.Create(&u).Error; err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	lg.Infow("seeded default admin", "email", cfg.AdminEmail)
	return nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.lg.Sync()
}
