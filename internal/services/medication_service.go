// Package services – MedicationService
//
// This file implements MedicationService, which owns the medication
// collection: adding, editing, refilling and removing medications. Input is
// normalized and validated by the domain layer before any write, so a
// rejected request leaves the store untouched and the caller can retry with
// the same payload.
//
// Service-level errors (e.g., ErrMedicationNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/repo"
	"github.com/tbourn/medremind-core/internal/supply"
)

// MedicationRepo defines the repository contract required by
// MedicationService.
type MedicationRepo interface {
	// ListMedications returns every medication in insertion order.
	ListMedications(ctx context.Context, s repo.Store) []domain.Medication

	// GetMedication fetches a medication by id.
	GetMedication(ctx context.Context, s repo.Store, id string) (*domain.Medication, error)

	// AddMedication validates and appends a new medication.
	AddMedication(ctx context.Context, s repo.Store, m domain.Medication) (*domain.Medication, error)

	// UpdateMedication validates and replaces an existing medication.
	UpdateMedication(ctx context.Context, s repo.Store, m domain.Medication) (*domain.Medication, error)

	// DeleteMedication removes a medication by id.
	DeleteMedication(ctx context.Context, s repo.Store, id string) error
}

// MedicationPatch is a partial update. Nil fields are left unchanged.
type MedicationPatch struct {
	Name            *string
	Dosage          *string
	Frequency       *domain.Frequency
	Times           *[]string
	StartDate       *time.Time
	Duration        *domain.Duration
	Color           *string
	Notes           *string
	ReminderEnabled *bool
	CurrentSupply   *int
	TotalSupply     *int
	RefillAt        *int
	RefillReminder  *bool
}

// Apply returns m with the patch applied. Changing the frequency without
// supplying times resets the slots to the new frequency's defaults.
func (p MedicationPatch) Apply(m domain.Medication) domain.Medication {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Dosage != nil {
		m.Dosage = *p.Dosage
	}
	if p.Frequency != nil && *p.Frequency != m.Frequency {
		m.Frequency = *p.Frequency
		if p.Times == nil {
			m.Times = nil
		}
	}
	if p.Times != nil {
		m.Times = append([]string(nil), (*p.Times)...)
	}
	if p.StartDate != nil {
		m.StartDate = *p.StartDate
	}
	if p.Duration != nil {
		m.Duration = *p.Duration
	}
	if p.Color != nil {
		m.Color = *p.Color
	}
	if p.Notes != nil {
		m.Notes = *p.Notes
	}
	if p.ReminderEnabled != nil {
		m.ReminderEnabled = *p.ReminderEnabled
	}
	if p.CurrentSupply != nil {
		m.CurrentSupply = *p.CurrentSupply
	}
	if p.TotalSupply != nil {
		m.TotalSupply = *p.TotalSupply
	}
	if p.RefillAt != nil {
		m.RefillAt = *p.RefillAt
	}
	if p.RefillReminder != nil {
		m.RefillReminder = *p.RefillReminder
	}
	return m
}

// MedicationService provides medication-level operations.
type MedicationService struct {
	// Store is the key-value store holding the collections.
	Store repo.Store
	// Repo is the medication repository used by this service.
	Repo MedicationRepo
	// Now is the clock used for refill timestamps; defaults to time.Now.
	Now func() time.Time
}

// NewMedicationService constructs a MedicationService using the wall clock.
func NewMedicationService(s repo.Store, r MedicationRepo) *MedicationService {
	return &MedicationService{Store: s, Repo: r, Now: time.Now}
}

func (s *MedicationService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// List returns all medications in insertion order.
func (s *MedicationService) List(ctx context.Context) []domain.Medication {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "List")
	defer span.End()

	meds := s.Repo.ListMedications(ctx, s.Store)
	span.SetAttributes(attribute.Int("medications.count", len(meds)))
	return meds
}

// ListPage returns a page of medications and the total count. Invalid
// page/pageSize values fall back to 1 and 20.
func (s *MedicationService) ListPage(ctx context.Context, page, pageSize int) ([]domain.Medication, int64) {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	all := s.Repo.ListMedications(ctx, s.Store)
	total := int64(len(all))
	offset := (page - 1) * pageSize
	if offset >= len(all) {
		return []domain.Medication{}, total
	}
	end := offset + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total
}

// Get returns one medication or ErrMedicationNotFound.
func (s *MedicationService) Get(ctx context.Context, id string) (*domain.Medication, error) {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "Get",
		trace.WithAttributes(attribute.String("medication.id", id)),
	)
	defer span.End()

	m, err := s.Repo.GetMedication(ctx, s.Store, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMedicationNotFound
	}
	return m, err
}

// Add validates and stores a new medication. Supply counts are stored as
// given; a current supply of 0 means the user is out.
func (s *MedicationService) Add(ctx context.Context, m domain.Medication) (*domain.Medication, error) {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "Add",
		trace.WithAttributes(attribute.String("medication.frequency", string(m.Frequency))),
	)
	defer span.End()

	out, err := s.Repo.AddMedication(ctx, s.Store, m)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	medicationsCreated.Inc()
	span.SetAttributes(attribute.String("medication.id", out.ID))
	return out, nil
}

// Update applies patch to the medication with the given id and revalidates
// the result.
func (s *MedicationService) Update(ctx context.Context, id string, patch MedicationPatch) (*domain.Medication, error) {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "Update",
		trace.WithAttributes(attribute.String("medication.id", id)),
	)
	defer span.End()

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.Repo.UpdateMedication(ctx, s.Store, patch.Apply(*cur))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMedicationNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return out, nil
}

// Refill restores the supply of a medication to its total.
func (s *MedicationService) Refill(ctx context.Context, id string) (*domain.Medication, error) {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "Refill",
		trace.WithAttributes(attribute.String("medication.id", id)),
	)
	defer span.End()

	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m := supply.Refill(*cur, s.now())
	if err := repo.SaveMedication(ctx, s.Store, m); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMedicationNotFound
		}
		span.RecordError(err)
		return nil, err
	}
	return &m, nil
}

// Delete removes a medication. Its dose history is kept.
func (s *MedicationService) Delete(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("services/MedicationService").Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("medication.id", id)),
	)
	defer span.End()

	err := s.Repo.DeleteMedication(ctx, s.Store, id)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMedicationNotFound
	}
	return err
}
