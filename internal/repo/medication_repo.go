// Package repo implements the persistence layer for the medication tracker.
// This file provides repository functions for the medications collection.
//
// Every write is a whole-collection read-modify-write: the current sequence
// is read, changed in memory and written back in full. Two overlapping
// writers therefore race and the later one wins; callers that need several
// writes to land together wrap them in Store.Atomic.
//
// Error semantics:
//   - AddMedication and UpdateMedication reject malformed input with a
//     *domain.ValidationError before touching the store.
//   - Lookups by id return ErrNotFound when no medication matches.
//   - Writes load the collection strictly: a collection that cannot be read
//     or decoded fails the write with *StorageReadError and is left as is.
//   - Store failures surface as *StorageWriteError.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/medremind-core/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ListMedications returns all medications in insertion order.
func ListMedications(ctx context.Context, s Store) []domain.Medication {
	return ReadCollection[domain.Medication](ctx, s, domain.CollectionMedications)
}

// loadMedications is the strict read used before every write.
func loadMedications(ctx context.Context, s Store) ([]domain.Medication, error) {
	return LoadCollection[domain.Medication](ctx, s, domain.CollectionMedications)
}

// GetMedication returns the medication with the given id or ErrNotFound.
func GetMedication(ctx context.Context, s Store, id string) (*domain.Medication, error) {
	for _, m := range ListMedications(ctx, s) {
		if m.ID == id {
			m := m
			return &m, nil
		}
	}
	return nil, ErrNotFound
}

// LoadMedication is GetMedication for write paths: a collection that cannot
// be read yields the *StorageReadError rather than ErrNotFound.
func LoadMedication(ctx context.Context, s Store, id string) (*domain.Medication, error) {
	meds, err := loadMedications(ctx, s)
	if err != nil {
		return nil, err
	}
	if idx := indexOfMedication(meds, id); idx >= 0 {
		return &meds[idx], nil
	}
	return nil, ErrNotFound
}

// AddMedication normalizes and validates m, assigns a fresh id and creation
// time, appends it and persists the full collection. A zero StartDate
// defaults to the creation time.
func AddMedication(ctx context.Context, s Store, m domain.Medication) (*domain.Medication, error) {
	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	meds, err := loadMedications(ctx, s)
	if err != nil {
		return nil, err
	}
	m.ID = newUniqueID(meds)
	m.CreatedAt = time.Now().UTC()
	if m.StartDate.IsZero() {
		m.StartDate = m.CreatedAt
	}

	meds = append(meds, m)
	if err := WriteCollection(ctx, s, domain.CollectionMedications, meds); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateMedication replaces the stored medication with the same id. The id
// and creation time are immutable; everything else is revalidated.
func UpdateMedication(ctx context.Context, s Store, m domain.Medication) (*domain.Medication, error) {
	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	meds, err := loadMedications(ctx, s)
	if err != nil {
		return nil, err
	}
	idx := indexOfMedication(meds, m.ID)
	if idx < 0 {
		return nil, ErrNotFound
	}
	m.CreatedAt = meds[idx].CreatedAt
	meds[idx] = m

	if err := WriteCollection(ctx, s, domain.CollectionMedications, meds); err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMedication removes a medication. Dose history referencing it is left
// untouched; readers treat such entries as dangling.
func DeleteMedication(ctx context.Context, s Store, id string) error {
	meds, err := loadMedications(ctx, s)
	if err != nil {
		return err
	}
	idx := indexOfMedication(meds, id)
	if idx < 0 {
		return ErrNotFound
	}
	meds = append(meds[:idx], meds[idx+1:]...)
	return WriteCollection(ctx, s, domain.CollectionMedications, meds)
}

func indexOfMedication(meds []domain.Medication, id string) int {
	for i := range meds {
		if meds[i].ID == id {
			return i
		}
	}
	return -1
}

// newUniqueID draws uuids until one is not already taken.
func newUniqueID(meds []domain.Medication) string {
	taken := make(map[string]struct{}, len(meds))
	for _, m := range meds {
		taken[m.ID] = struct{}{}
	}
	for {
		id := uuid.NewString()
		if _, dup := taken[id]; !dup {
			return id
		}
	}
}

// SaveMedication replaces the stored record with m verbatim. It skips
// normalization and validation and is meant for system-driven changes such as
// supply bookkeeping, which must not fail on records written by older
// versions.
func SaveMedication(ctx context.Context, s Store, m domain.Medication) error {
	meds, err := loadMedications(ctx, s)
	if err != nil {
		return err
	}
	idx := indexOfMedication(meds, m.ID)
	if idx < 0 {
		return ErrNotFound
	}
	meds[idx] = m
	return WriteCollection(ctx, s, domain.CollectionMedications, meds)
}
