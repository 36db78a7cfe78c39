// Package testutil provides a throwaway sqlite-backed database for repo and
// engine tests, plus seed helpers for the common fixtures.
package testutil

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/data/db"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/domain"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("test")
	if err != nil {
		tb.Fatalf("failed to init logger: %v", err)
	}
	return log
}

// DB opens a fresh migrated database in the test's temp dir.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "test.db")
	database, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("failed to open test db: %v", err)
	}
	if err := db.AutoMigrateAll(database); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	return database
}

func SeedUser(tb testing.TB, database *gorm.DB, name, phone string) *domain.User {
	tb.Helper()
	now := time.Now().UTC()
	u := &domain.User{Name: name, PhoneNumber: phone, ConsentedAt: &now}
	if err := database.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedCategory(tb testing.TB, database *gorm.DB, name string) *domain.Category {
	tb.Helper()
	c := &domain.Category{Name: name}
	if err := database.Where(domain.Category{Name: name}).FirstOrCreate(c).Error; err != nil {
		tb.Fatalf("seed category: %v", err)
	}
	return c
}

func SeedJob(tb testing.TB, database *gorm.DB, posterID, categoryID int, status domain.JobStatus, payment domain.PaymentStatus) *domain.Job {
	tb.Helper()
	j := &domain.Job{
		Description:   "walk my dog",
		CategoryID:    categoryID,
		DateTime:      time.Now().UTC().Add(48 * time.Hour),
		Amount:        decimal.NewFromInt(35),
		PostingFee:    decimal.NewFromInt(3),
		ZipCode:       "92101",
		City:          "San Diego",
		State:         "CA",
		PostedBy:      posterID,
		Status:        status,
		PaymentStatus: payment,
	}
	if err := database.Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}
