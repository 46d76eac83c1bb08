package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/medremind-core/internal/domain"
)

func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	// Unique DB per test to avoid schema leaking across tests.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCollectionStats_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	_, _, err := CollectionStats(context.Background(), db, domain.CollectionMedications)
	if err == nil {
		t.Fatalf("expected error due to missing collections table")
	}
}

func TestCollectionStats_MissingKey(t *testing.T) {
	db := newTestDB(t, &domain.Collection{})
	size, at, err := CollectionStats(context.Background(), db, domain.CollectionMedications)
	if err != nil {
		t.Fatalf("CollectionStats error: %v", err)
	}
	if size != 0 || at != nil {
		t.Fatalf("expected (0, nil), got (%d, %v)", size, at)
	}
}

func TestCollectionStats_SizeAndUpdatedAt(t *testing.T) {
	db := newTestDB(t, &domain.Collection{})
	ctx := context.Background()
	s := NewGormStore(db)

	before := time.Now().Add(-time.Second)
	payload := []byte(`[{"id":"a"}]`)
	if err := s.Save(ctx, domain.CollectionMedications, payload); err != nil {
		t.Fatalf("save: %v", err)
	}

	size, at, err := CollectionStats(ctx, db, domain.CollectionMedications)
	if err != nil {
		t.Fatalf("CollectionStats error: %v", err)
	}
	if size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), size)
	}
	if at == nil || at.Before(before) {
		t.Fatalf("unexpected updatedAt: %v", at)
	}

	// A larger write changes the size.
	if err := s.Save(ctx, domain.CollectionMedications, []byte(`[{"id":"a"},{"id":"b"}]`)); err != nil {
		t.Fatalf("save 2: %v", err)
	}
	size2, _, _ := CollectionStats(ctx, db, domain.CollectionMedications)
	if size2 <= size {
		t.Fatalf("expected size to grow, got %d -> %d", size, size2)
	}
}
