package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (Collection{}).TableName() != "collections" {
		t.Fatalf("Collection table name")
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency table name")
	}
}

func TestCollection_AutoMigrateAndRoundTrip(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Collection{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if !db.Migrator().HasIndex(&Idempotency{}, "ux_scope_key") {
		t.Fatalf("expected unique index ux_scope_key")
	}

	row := Collection{Key: CollectionMedications, Payload: datatypes.JSON(`[{"id":"m1"}]`)}
	if err := db.Create(&row).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var got Collection
	if err := db.First(&got, "key = ?", CollectionMedications).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got.Payload) != `[{"id":"m1"}]` {
		t.Fatalf("payload mismatch: %s", got.Payload)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt should be set by gorm")
	}
}

func TestIdempotency_UniqueScopeKey(t *testing.T) {
	db := newTestDB(t)
	if err := db.AutoMigrate(&Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	now := time.Now().UTC()
	a := Idempotency{ID: "a", Scope: "doses", Key: "k1", ResourceID: "d1", Status: 201, ExpiresAt: now.Add(time.Hour)}
	b := Idempotency{ID: "b", Scope: "doses", Key: "k1", ResourceID: "d2", Status: 201, ExpiresAt: now.Add(time.Hour)}
	c := Idempotency{ID: "c", Scope: "other", Key: "k1", ResourceID: "d3", Status: 201, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create a: %v", err)
	}
	if err := db.Create(&b).Error; err == nil {
		t.Fatalf("expected unique violation for same scope/key")
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("same key in another scope should be allowed: %v", err)
	}
}

func TestMedication_UnmarshalLegacyReminderKey(t *testing.T) {
	var m Medication
	raw := `{"id":"m1","name":"Aspirin","dosage":"1 pill","frequency":"twice-daily",
		"times":["09:00","21:00"],"duration":"7 days","reminderEnable":true}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !m.ReminderEnabled {
		t.Fatalf("legacy reminderEnable should map to ReminderEnabled")
	}
	if m.Frequency != FrequencyTwiceDaily {
		t.Fatalf("frequency = %q", m.Frequency)
	}
	if m.Duration != 7 {
		t.Fatalf("duration = %d", m.Duration)
	}
}

func TestMedication_MissingFieldsDecodeToZero(t *testing.T) {
	var m Medication
	if err := json.Unmarshal([]byte(`{"id":"old","name":"X"}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Duration.Set() || m.Frequency != "" || m.Times != nil || m.LastRefillDate != nil {
		t.Fatalf("expected zero values for missing fields: %+v", m)
	}
}

func TestMedication_LooselyTypedAppRecord(t *testing.T) {
	var m Medication
	raw := `{"id":"m1","name":"A","startDate":"2025-01-01","lastRefillDate":"",
		"currentSupply":"12","totalSupply":30,"refillAt":"","createdAt":1735689600000}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.CurrentSupply != 12 || m.TotalSupply != 30 || m.RefillAt != 0 {
		t.Fatalf("supply fields = %d/%d/%d", m.CurrentSupply, m.TotalSupply, m.RefillAt)
	}
	if m.LastRefillDate != nil {
		t.Fatalf("empty lastRefillDate should decode to nil, got %v", m.LastRefillDate)
	}
	if !m.StartDate.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("startDate = %v", m.StartDate)
	}
	if !m.CreatedAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("createdAt = %v", m.CreatedAt)
	}

	for _, bad := range []string{
		`{"id":"m1","currentSupply":{}}`,
		`{"id":"m1","currentSupply":"twelve"}`,
		`{"id":"m1","startDate":"yesterday"}`,
	} {
		if err := json.Unmarshal([]byte(bad), &m); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
}

func TestDoseHistory_EmptyTimestamp(t *testing.T) {
	var d DoseHistory
	if err := json.Unmarshal([]byte(`{"id":"d1","medicationId":"m1","timestamp":"","taken":true}`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.ID != "d1" || d.MedicationID != "m1" || !d.Taken || !d.Timestamp.IsZero() {
		t.Fatalf("unexpected entry: %+v", d)
	}
	if err := json.Unmarshal([]byte(`{"id":"d1","timestamp":true}`), &d); err == nil {
		t.Fatalf("expected error for boolean timestamp")
	}
}

func TestMedication_JSONRoundTrip_DurationLabel(t *testing.T) {
	start := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	in := Medication{
		ID: "m1", Name: "Metformin", Dosage: "500mg", Frequency: FrequencyOnceDaily,
		Times: []string{"09:00"}, StartDate: start, Duration: DurationOngoing, ReminderEnabled: true,
	}
	b, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(b, &decoded)
	if decoded["duration"] != "Ongoing" {
		t.Fatalf("duration should be written as label, got %v", decoded["duration"])
	}
	var out Medication
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round-trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestValidationError_Is(t *testing.T) {
	m := Medication{}
	err := m.Validate()
	if !errors.Is(err, ErrInvalidMedication) {
		t.Fatalf("expected ErrInvalidMedication, got %v", err)
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError")
	}
	fields := map[string]bool{}
	for _, f := range ve.Fields {
		fields[f.Field] = true
	}
	for _, want := range []string{"name", "dosage", "frequency", "duration"} {
		if !fields[want] {
			t.Fatalf("missing field error for %q: %v", want, ve.Fields)
		}
	}
}
