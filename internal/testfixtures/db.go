// Package testfixtures provides a migrated SQLite database and seed helpers
// for package tests.
package testfixtures

import (
	"path/filepath"
	"testing"
	"time"

	"eventflow/internal/auth"
	"eventflow/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB returns a migrated database in a per-test temporary file with
// foreign keys enforced.
func OpenDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "eventflow.db")
	db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func strPtr(s string) *string { return &s }

func Float(f float64) *float64 { return &f }

func Clock(h, m int) *models.ClockTime {
	c := models.NewClockTime(h, m)
	return &c
}

// User inserts a user with the given role and status; password is "secret".
func User(tb testing.TB, db *gorm.DB, email, role, status string) models.User {
	tb.Helper()
	hash, err := auth.HashPassword("secret")
	if err != nil {
		tb.Fatalf("hash: %v", err)
	}
	u := models.User{
		Email:        email,
		PasswordHash: hash,
		Nom:          strPtr("Doe"),
		Prenom:       strPtr("Jane"),
		Role:         role,
		Status:       status,
	}
	if err := db.Create(&u).Error; err != nil {
		tb.Fatalf("user: %v", err)
	}
	return u
}

func Client(tb testing.TB, db *gorm.DB, name string, rate *float64) models.Client {
	tb.Helper()
	c := models.Client{Nom: name, Adresse: strPtr("1 Grand Place, Brussels"), TarifHoraire: rate}
	if err := db.Create(&c).Error; err != nil {
		tb.Fatalf("client: %v", err)
	}
	return c
}

func Project(tb testing.TB, db *gorm.DB, clientID int64, name string) models.Project {
	tb.Helper()
	p := models.Project{Nom: name, ClientID: clientID}
	if err := db.Create(&p).Error; err != nil {
		tb.Fatalf("project: %v", err)
	}
	return p
}

// Billable inserts a validated prestation with the given hours and frozen rate.
func Billable(tb testing.TB, db *gorm.DB, userID string, project models.Project, date models.Date, hours, rate *float64) models.Prestation {
	tb.Helper()
	p := models.Prestation{
		UserID:      userID,
		ClientID:    project.ClientID,
		ProjectID:   project.ID,
		Date:        date,
		Start:       Clock(9, 0),
		End:         Clock(17, 0),
		Hours:       hours,
		Status:      models.PrestationValidated,
		AppliedRate: rate,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&p).Error; err != nil {
		tb.Fatalf("prestation: %v", err)
	}
	return p
}
