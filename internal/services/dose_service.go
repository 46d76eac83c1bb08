// Package services – DoseService
//
// This file implements DoseService, the write path into the append-only dose
// ledger. Recording a taken dose for a live medication also consumes one
// unit of its supply; both writes commit in one Store.Atomic unit so the
// ledger and the supply counter never drift apart.
//
// Idempotency: when the caller supplies a key, the first successful record
// is remembered in the idempotency table (scope "doses") and a retry with
// the same key returns the original entry instead of appending a new one.
//
// Observability: all public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/repo"
	"github.com/tbourn/medremind-core/internal/supply"
)

// IdempotencyScopeDoses scopes idempotency keys of dose recording.
const IdempotencyScopeDoses = "doses"

// RecordDoseInput describes one ledger write.
type RecordDoseInput struct {
	MedicationID string
	Taken        bool
	// Timestamp defaults to the service clock when zero.
	Timestamp time.Time
	// IdempotencyKey is optional.
	IdempotencyKey string
}

// DoseService coordinates ledger writes and reads.
type DoseService struct {
	// Store holds the collections.
	Store repo.Store
	// DB backs the idempotency table. Nil disables idempotent replay.
	DB *gorm.DB
	// IdempotencyTTL is how long a key is remembered (default 24h).
	IdempotencyTTL time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *DoseService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *DoseService) ttl() time.Duration {
	if s.IdempotencyTTL <= 0 {
		return 24 * time.Hour
	}
	return s.IdempotencyTTL
}

// Record appends a ledger entry. The boolean is true when the entry is a
// replay of an earlier request with the same idempotency key.
//
// The medication id is not checked against the medication collection; an
// entry for an unknown id is stored but consumes no supply.
func (s *DoseService) Record(ctx context.Context, in RecordDoseInput) (*domain.DoseHistory, bool, error) {
	ctx, span := otel.Tracer("services/DoseService").Start(ctx, "Record",
		trace.WithAttributes(
			attribute.String("medication.id", in.MedicationID),
			attribute.Bool("dose.taken", in.Taken),
		),
	)
	defer span.End()

	in.MedicationID = strings.TrimSpace(in.MedicationID)
	if in.MedicationID == "" {
		return nil, false, ErrInvalidDose
	}
	key := strings.TrimSpace(in.IdempotencyKey)

	if prev := s.replay(ctx, key); prev != nil {
		span.SetAttributes(attribute.Bool("idempotency.replayed", true))
		return prev, true, nil
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	var out *domain.DoseHistory
	err := s.Store.Atomic(ctx, func(tx repo.Store) error {
		d, err := repo.RecordDose(ctx, tx, in.MedicationID, in.Taken, ts)
		if err != nil {
			return err
		}
		out = d
		if !in.Taken {
			return nil
		}
		m, err := repo.LoadMedication(ctx, tx, in.MedicationID)
		if errors.Is(err, repo.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return repo.SaveMedication(ctx, tx, supply.Consume(*m, 1))
	})
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	dosesRecorded.WithLabelValues(strconv.FormatBool(in.Taken)).Inc()

	if key != "" && s.DB != nil {
		if _, err := repo.CreateIdempotency(ctx, s.DB, IdempotencyScopeDoses, key, out.ID, 201, s.now(), s.ttl()); err != nil && !errors.Is(err, repo.ErrDuplicate) {
			log.Ctx(ctx).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency record not stored")
		}
	}
	return out, false, nil
}

// replay returns the entry previously recorded under key, if any.
func (s *DoseService) replay(ctx context.Context, key string) *domain.DoseHistory {
	if key == "" || s.DB == nil {
		return nil
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, IdempotencyScopeDoses, key, s.now().UTC())
	if err != nil || rec == nil {
		return nil
	}
	prev, err := repo.GetDose(ctx, s.Store, rec.ResourceID)
	if err != nil {
		return nil
	}
	return prev
}

// Get returns one ledger entry or ErrDoseNotFound.
func (s *DoseService) Get(ctx context.Context, id string) (*domain.DoseHistory, error) {
	ctx, span := otel.Tracer("services/DoseService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("dose.id", id)),
	)
	defer span.End()

	d, err := repo.GetDose(ctx, s.Store, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrDoseNotFound
	}
	return d, err
}

// List returns the whole ledger in recording order.
func (s *DoseService) List(ctx context.Context) []domain.DoseHistory {
	ctx, span := otel.Tracer("services/DoseService").Start(ctx, "List")
	defer span.End()
	return repo.ListDoses(ctx, s.Store)
}

// ListForDate returns entries on day's calendar date in day's location.
func (s *DoseService) ListForDate(ctx context.Context, day time.Time) []domain.DoseHistory {
	ctx, span := otel.Tracer("services/DoseService").Start(ctx, "ListForDate",
		trace.WithAttributes(attribute.String("date", day.Format("2006-01-02"))),
	)
	defer span.End()
	return repo.ListDosesForDate(ctx, s.Store, day)
}

// ListForMedication returns entries for one medication id.
func (s *DoseService) ListForMedication(ctx context.Context, medicationID string) []domain.DoseHistory {
	ctx, span := otel.Tracer("services/DoseService").Start(ctx, "ListForMedication",
		trace.WithAttributes(attribute.String("medication.id", medicationID)),
	)
	defer span.End()
	return repo.ListDosesForMedication(ctx, s.Store, medicationID)
}

// ClearAll deletes both the medication collection and the ledger, and
// forgets the idempotency keys that pointed into the ledger.
func (s *DoseService) ClearAll(ctx context.Context) error {
	ctx, span := otel.Tracer("services/DoseService").Start(ctx, "ClearAll")
	defer span.End()

	err := repo.ClearCollections(ctx, s.Store, domain.CollectionMedications, domain.CollectionDoseHistory)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if s.DB != nil {
		if _, err := repo.DeleteIdempotencyScope(ctx, s.DB, IdempotencyScopeDoses); err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("idempotency keys not cleared")
		}
	}
	return nil
}
