// Package supply tracks remaining medication supply and refill signals.
//
// Supply is a plain counter on the medication record: each taken dose
// consumes one unit and a refill restores the total. The functions here
// operate on values; persisting the result is the caller's job.
package supply

import (
	"time"

	"github.com/tbourn/medremind-core/internal/domain"
)

// Alert is a refill-needed signal for one medication.
type Alert struct {
	MedicationID string `json:"medicationId"`
	Name         string `json:"name"`
	Remaining    int    `json:"remaining"`
	RefillAt     int    `json:"refillAt"`
}

// Remaining returns the units left.
func Remaining(m domain.Medication) int { return m.CurrentSupply }

// NeedsRefill is true when refill reminders are on and supply is at or
// below the threshold.
func NeedsRefill(m domain.Medication) bool {
	return m.RefillReminder && m.CurrentSupply <= m.RefillAt
}

// Consume removes units from supply, never going below zero.
func Consume(m domain.Medication, units int) domain.Medication {
	if units <= 0 {
		return m
	}
	m.CurrentSupply -= units
	if m.CurrentSupply < 0 {
		m.CurrentSupply = 0
	}
	return m
}

// Refill restores supply to the total and records when it happened.
func Refill(m domain.Medication, at time.Time) domain.Medication {
	m.CurrentSupply = m.TotalSupply
	ts := at.UTC()
	m.LastRefillDate = &ts
	return m
}

// Alerts lists every medication that needs a refill, in input order.
func Alerts(meds []domain.Medication) []Alert {
	out := []Alert{}
	for _, m := range meds {
		if NeedsRefill(m) {
			out = append(out, Alert{
				MedicationID: m.ID,
				Name:         m.Name,
				Remaining:    m.CurrentSupply,
				RefillAt:     m.RefillAt,
			})
		}
	}
	return out
}
