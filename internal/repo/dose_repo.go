// Package repo implements the persistence layer for the medication tracker.
// This file provides the dose history ledger.
//
// The ledger is append-only: RecordDose is the only write and it never
// changes or removes existing entries. Entries may reference medications
// that no longer exist; no referential check is made.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tbourn/medremind-core/internal/domain"
)

// ListDoses returns the whole ledger in recording order.
func ListDoses(ctx context.Context, s Store) []domain.DoseHistory {
	return ReadCollection[domain.DoseHistory](ctx, s, domain.CollectionDoseHistory)
}

// RecordDose appends a new entry with a fresh id and persists the ledger. A
// ledger that cannot be read is not rewritten; the *StorageReadError is
// returned instead.
func RecordDose(ctx context.Context, s Store, medicationID string, taken bool, timestamp time.Time) (*domain.DoseHistory, error) {
	history, err := LoadCollection[domain.DoseHistory](ctx, s, domain.CollectionDoseHistory)
	if err != nil {
		return nil, err
	}
	d := domain.DoseHistory{
		ID:           uuid.NewString(),
		MedicationID: medicationID,
		Timestamp:    timestamp,
		Taken:        taken,
	}
	history = append(history, d)
	if err := WriteCollection(ctx, s, domain.CollectionDoseHistory, history); err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDose returns the entry with the given id or ErrNotFound.
func GetDose(ctx context.Context, s Store, id string) (*domain.DoseHistory, error) {
	for _, d := range ListDoses(ctx, s) {
		if d.ID == id {
			d := d
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

// ListDosesForDate returns entries whose timestamp falls on day's calendar
// date, evaluated in day's location.
func ListDosesForDate(ctx context.Context, s Store, day time.Time) []domain.DoseHistory {
	return FilterDosesByDate(ListDoses(ctx, s), day)
}

// ListDosesForMedication returns the entries recorded for one medication.
func ListDosesForMedication(ctx context.Context, s Store, medicationID string) []domain.DoseHistory {
	out := []domain.DoseHistory{}
	for _, d := range ListDoses(ctx, s) {
		if d.MedicationID == medicationID {
			out = append(out, d)
		}
	}
	return out
}

// FilterDosesByDate is the pure filter behind ListDosesForDate.
func FilterDosesByDate(history []domain.DoseHistory, day time.Time) []domain.DoseHistory {
	loc := day.Location()
	y, m, d := day.Date()
	out := []domain.DoseHistory{}
	for _, h := range history {
		hy, hm, hd := h.Timestamp.In(loc).Date()
		if hy == y && hm == m && hd == d {
			out = append(out, h)
		}
	}
	return out
}
