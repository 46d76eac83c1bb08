package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/repo"
)

// newTestStore returns a file-backed store with both tables migrated.
func newTestStore(t *testing.T) (*repo.GormStore, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "svc.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return repo.NewGormStore(db), db
}

// medRepo forwards to the repo package functions.
type medRepo struct{}

func (medRepo) ListMedications(ctx context.Context, s repo.Store) []domain.Medication {
	return repo.ListMedications(ctx, s)
}

func (medRepo) GetMedication(ctx context.Context, s repo.Store, id string) (*domain.Medication, error) {
	return repo.GetMedication(ctx, s, id)
}

func (medRepo) AddMedication(ctx context.Context, s repo.Store, m domain.Medication) (*domain.Medication, error) {
	return repo.AddMedication(ctx, s, m)
}

func (medRepo) UpdateMedication(ctx context.Context, s repo.Store, m domain.Medication) (*domain.Medication, error) {
	return repo.UpdateMedication(ctx, s, m)
}

func (medRepo) DeleteMedication(ctx context.Context, s repo.Store, id string) error {
	return repo.DeleteMedication(ctx, s, id)
}

// failOnKey refuses writes to one collection, inside transactions too.
type failOnKey struct {
	repo.Store
	key string
	err error
}

func (f failOnKey) Save(ctx context.Context, key string, payload []byte) error {
	if key == f.key {
		return f.err
	}
	return f.Store.Save(ctx, key, payload)
}

func (f failOnKey) Atomic(ctx context.Context, fn func(repo.Store) error) error {
	return f.Store.Atomic(ctx, func(tx repo.Store) error {
		return fn(failOnKey{Store: tx, key: f.key, err: f.err})
	})
}

// fixedClock returns a clock frozen at t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

var day0 = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

func clockAt(h, m int) time.Time {
	return time.Date(day0.Year(), day0.Month(), day0.Day(), h, m, 0, 0, time.UTC)
}

func seedMedication(t *testing.T, s repo.Store, mutate ...func(*domain.Medication)) *domain.Medication {
	t.Helper()
	m := domain.Medication{
		Name:            "Aspirin",
		Dosage:          "100mg",
		Frequency:       domain.FrequencyTwiceDaily,
		StartDate:       day0,
		Duration:        7,
		ReminderEnabled: true,
		TotalSupply:     30,
		CurrentSupply:   5,
		RefillAt:        5,
		RefillReminder:  true,
	}
	for _, fn := range mutate {
		fn(&m)
	}
	out, err := repo.AddMedication(context.Background(), s, m)
	if err != nil {
		t.Fatalf("seed medication: %v", err)
	}
	return out
}
