// Package domain defines the records persisted by the medication tracker:
// medications, dose history entries, and the key-value rows that hold them.
// Medications and dose history are stored as JSON collections; only the
// collection row and the idempotency record are mapped as GORM tables.
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Collection keys in the key-value store.
const (
	CollectionMedications = "medications"
	CollectionDoseHistory = "dose_history"
	CollectionCredentials = "credentials"
)

// Collection is one named entry of the key-value store. Payload holds the
// JSON-serialized sequence of records for that key.
//
// Fields:
//   - Key: collection name (primary key), e.g. "medications".
//   - Payload: JSON array of records.
//   - UpdatedAt: last write time, used for conditional list responses.
type Collection struct {
	Key       string         `gorm:"type:varchar(64);primaryKey"`
	Payload   datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName returns the database table name for Collection.
func (Collection) TableName() string { return "collections" }

// Medication is a user-configured medication with its schedule, reminder and
// supply settings.
//
// Fields:
//   - ID: uuid assigned on creation; immutable afterwards.
//   - Name, Dosage: required free text.
//   - Frequency: one of the Frequency values; drives the canonical slots.
//   - Times: HH:MM slots, ascending; empty for FrequencyAsNeeded.
//   - StartDate: first calendar day of the schedule.
//   - Duration: course length in days or DurationOngoing.
//   - Color, Notes: presentation data, opaque to the core.
//   - ReminderEnabled: participates in reminder computation.
//   - CurrentSupply, TotalSupply, RefillAt, RefillReminder: supply tracking.
//   - LastRefillDate: audit only, never recomputed.
type Medication struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Dosage          string     `json:"dosage"`
	Frequency       Frequency  `json:"frequency"`
	Times           []string   `json:"times"`
	StartDate       time.Time  `json:"startDate"`
	Duration        Duration   `json:"duration"`
	Color           string     `json:"color,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	ReminderEnabled bool       `json:"reminderEnabled"`
	CurrentSupply   int        `json:"currentSupply"`
	TotalSupply     int        `json:"totalSupply"`
	RefillAt        int        `json:"refillAt"`
	RefillReminder  bool       `json:"refillReminder"`
	LastRefillDate  *time.Time `json:"lastRefillDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// UnmarshalJSON decodes a Medication. It accepts the legacy "reminderEnable"
// key written by early app versions, empty date strings and supply counts
// stored as strings.
func (m *Medication) UnmarshalJSON(b []byte) error {
	type plain Medication
	aux := struct {
		*plain
		StartDate      looseTime `json:"startDate"`
		LastRefillDate looseTime `json:"lastRefillDate"`
		CreatedAt      looseTime `json:"createdAt"`
		CurrentSupply  looseInt  `json:"currentSupply"`
		TotalSupply    looseInt  `json:"totalSupply"`
		RefillAt       looseInt  `json:"refillAt"`
		LegacyReminder *bool     `json:"reminderEnable"`
	}{plain: (*plain)(m)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	m.StartDate = aux.StartDate.Time
	m.LastRefillDate = aux.LastRefillDate.ptr()
	m.CreatedAt = aux.CreatedAt.Time
	m.CurrentSupply = int(aux.CurrentSupply)
	m.TotalSupply = int(aux.TotalSupply)
	m.RefillAt = int(aux.RefillAt)
	if aux.LegacyReminder != nil && !m.ReminderEnabled {
		m.ReminderEnabled = *aux.LegacyReminder
	}
	return nil
}

// DoseHistory is one ledger entry: a dose taken (Taken=true) or explicitly
// skipped (Taken=false) at Timestamp. MedicationID may reference a medication
// that no longer exists.
type DoseHistory struct {
	ID           string    `json:"id"`
	MedicationID string    `json:"medicationId"`
	Timestamp    time.Time `json:"timestamp"`
	Taken        bool      `json:"taken"`
}

// UnmarshalJSON decodes a ledger entry, accepting an empty timestamp.
func (d *DoseHistory) UnmarshalJSON(b []byte) error {
	type plain DoseHistory
	aux := struct {
		*plain
		Timestamp looseTime `json:"timestamp"`
	}{plain: (*plain)(d)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d.Timestamp = aux.Timestamp.Time
	return nil
}

// Credentials is the secure record behind the PIN gate. The PIN itself is
// never stored, only its bcrypt hash.
type Credentials struct {
	Email     string    `json:"email"`
	PINHash   string    `json:"pinHash"`
	CreatedAt time.Time `json:"createdAt"`
}
