// Package repo implements the persistence layer for the medication tracker:
// named JSON collections kept in a single SQLite file through GORM, plus the
// typed repositories built on top of them.
package repo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/medremind-core/internal/domain"
)

// Statements slower than this are logged at warn level.
const slowStatement = 200 * time.Millisecond

// Applied by the driver to every new connection.
var connPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"busy_timeout(5000)",
}

// OpenSQLite opens the database file at path, creating it if needed. The
// parent directory must already exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("database directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("database directory %q is not a directory", dir)
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger:  zerologGorm{level: gormlogger.Warn},
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// Collections are rewritten whole, so writes go through one connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// EnableTracing installs the GORM OpenTelemetry plugin so every statement
// becomes a child span of the calling service span.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates the collection table and the idempotency table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Collection{},
		&domain.Idempotency{},
	)
}

// zerologGorm routes GORM's logging through the request-scoped zerolog
// logger found in ctx, falling back to the global one.
type zerologGorm struct {
	level gormlogger.LogLevel
}

func (z zerologGorm) LogMode(l gormlogger.LogLevel) gormlogger.Interface {
	return zerologGorm{level: l}
}

func (z zerologGorm) Info(ctx context.Context, msg string, args ...any) {
	if z.level >= gormlogger.Info {
		ctxLogger(ctx).Info().Msgf(msg, args...)
	}
}

func (z zerologGorm) Warn(ctx context.Context, msg string, args ...any) {
	if z.level >= gormlogger.Warn {
		ctxLogger(ctx).Warn().Msgf(msg, args...)
	}
}

func (z zerologGorm) Error(ctx context.Context, msg string, args ...any) {
	if z.level >= gormlogger.Error {
		ctxLogger(ctx).Error().Msgf(msg, args...)
	}
}

func (z zerologGorm) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && z.level >= gormlogger.Error:
		stmt, rows := fc()
		ctxLogger(ctx).Error().Err(err).Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", stmt).Msg("gorm statement failed")
	case elapsed > slowStatement && z.level >= gormlogger.Warn:
		stmt, rows := fc()
		ctxLogger(ctx).Warn().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", stmt).Msg("gorm slow statement")
	case z.level >= gormlogger.Info:
		stmt, rows := fc()
		ctxLogger(ctx).Debug().Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", stmt).Msg("gorm statement")
	}
}

func ctxLogger(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	return &log.Logger
}
