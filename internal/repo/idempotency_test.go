package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// idemDB opens a file-backed database; migrate=false leaves it empty so
// inserts fail with a non-constraint error.
func idemDB(t *testing.T, migrate bool) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "idem.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if migrate {
		if err := AutoMigrate(db); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
	return db
}

var idemNow = time.Date(2025, 3, 10, 8, 0, 0, 0, time.FixedZone("CET", 3600))

func TestIdempotency_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := idemDB(t, true)

	rec, err := CreateIdempotency(ctx, db, "doses", "take-m1-0800", "dose-1", 201, idemNow, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || !rec.CreatedAt.Equal(idemNow) || !rec.ExpiresAt.Equal(idemNow.Add(time.Hour)) {
		t.Fatalf("record = %+v", rec)
	}
	if rec.CreatedAt.Location() != time.UTC {
		t.Fatalf("timestamps must be stored in UTC: %v", rec.CreatedAt.Location())
	}

	// Valid until just before expiry.
	got, err := GetIdempotency(ctx, db, "doses", "take-m1-0800", idemNow.Add(59*time.Minute))
	if err != nil || got.ResourceID != "dose-1" || got.Status != 201 {
		t.Fatalf("lookup before expiry: %+v %v", got, err)
	}
	if _, err := GetIdempotency(ctx, db, "doses", "take-m1-0800", idemNow.Add(time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup at expiry: %v", err)
	}

	// Same key, same scope: duplicate. Other scope: independent.
	if _, err := CreateIdempotency(ctx, db, "doses", "take-m1-0800", "dose-2", 201, idemNow, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "refills", "take-m1-0800", idemNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other scope: %v", err)
	}
	if _, err := CreateIdempotency(ctx, db, "refills", "take-m1-0800", "m1", 200, idemNow, time.Hour); err != nil {
		t.Fatalf("other scope create: %v", err)
	}
}

func TestGetIdempotency_BlankKey(t *testing.T) {
	db := idemDB(t, true)
	for _, key := range []string{"", "   "} {
		if rec, err := GetIdempotency(context.Background(), db, "doses", key, idemNow); rec != nil || !errors.Is(err, ErrNotFound) {
			t.Fatalf("key %q: %v %v", key, rec, err)
		}
	}
}

func TestCreateIdempotency_MissingTable(t *testing.T) {
	db := idemDB(t, false)
	_, err := CreateIdempotency(context.Background(), db, "doses", "k", "d", 201, idemNow, time.Minute)
	if err == nil || errors.Is(err, ErrDuplicate) {
		t.Fatalf("want a plain error, got %v", err)
	}
}

func TestIdempotency_PurgeAndScopeDelete(t *testing.T) {
	ctx := context.Background()
	db := idemDB(t, true)

	mustCreate := func(scope, key string, at time.Time, ttl time.Duration) {
		t.Helper()
		if _, err := CreateIdempotency(ctx, db, scope, key, "r-"+key, 201, at, ttl); err != nil {
			t.Fatalf("create %s/%s: %v", scope, key, err)
		}
	}
	mustCreate("doses", "old", idemNow.Add(-3*time.Hour), time.Hour)
	mustCreate("doses", "live", idemNow, time.Hour)
	mustCreate("refills", "live", idemNow, time.Hour)

	if n, err := PurgeExpiredIdempotency(ctx, db, idemNow); err != nil || n != 1 {
		t.Fatalf("purge: n=%d err=%v", n, err)
	}
	if _, err := GetIdempotency(ctx, db, "doses", "live", idemNow); err != nil {
		t.Fatalf("live record purged: %v", err)
	}

	if n, err := DeleteIdempotencyScope(ctx, db, "doses"); err != nil || n != 1 {
		t.Fatalf("scope delete: n=%d err=%v", n, err)
	}
	if _, err := GetIdempotency(ctx, db, "doses", "live", idemNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("doses scope survived: %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "refills", "live", idemNow); err != nil {
		t.Fatalf("other scope deleted: %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	cases := map[error]bool{
		gorm.ErrDuplicatedKey: true,
		errors.New("UNIQUE constraint failed: idempotency.scope, idempotency.key"): true,
		errors.New("constraint failed: UNIQUE constraint failed (2067)"):             true,
		errors.New("no such table: idempotency"):                                    false,
	}
	for err, want := range cases {
		if got := isUniqueViolation(err); got != want {
			t.Errorf("isUniqueViolation(%q) = %v; want %v", err, got, want)
		}
	}
}
