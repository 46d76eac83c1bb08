package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/supply"
)

type recordingNotifier struct {
	doses   []Reminder
	refills []supply.Alert
	doseErr error
}

func (n *recordingNotifier) NotifyDose(ctx context.Context, r Reminder) error {
	if n.doseErr != nil {
		return n.doseErr
	}
	n.doses = append(n.doses, r)
	return nil
}

func (n *recordingNotifier) NotifyRefill(ctx context.Context, a supply.Alert) error {
	n.refills = append(n.refills, a)
	return nil
}

func TestReminderService_DueWithinWindow(t *testing.T) {
	s, _ := newTestStore(t)
	m := seedMedication(t, s)
	svc := &ReminderService{Store: s, Location: time.UTC}

	got := svc.Due(context.Background(), clockAt(8, 50), 15*time.Minute)
	if len(got) != 1 || got[0].MedicationID != m.ID || got[0].Time != "09:00" || got[0].Name != "Aspirin" {
		t.Fatalf("expected the 09:00 slot, got %+v", got)
	}
	if got := svc.Due(context.Background(), clockAt(9, 1), 15*time.Minute); len(got) != 0 {
		t.Fatalf("slot in the past must not be due, got %+v", got)
	}
	if got := svc.Due(context.Background(), clockAt(8, 0), -time.Minute); len(got) != 0 {
		t.Fatalf("negative window must be empty")
	}
}

func TestReminderService_TakenSlotNotDue(t *testing.T) {
	s, _ := newTestStore(t)
	m := seedMedication(t, s)
	doses := &DoseService{Store: s}
	if _, _, err := doses.Record(context.Background(), RecordDoseInput{MedicationID: m.ID, Taken: true, Timestamp: clockAt(8, 45)}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	svc := &ReminderService{Store: s, Location: time.UTC}
	if got := svc.Due(context.Background(), clockAt(8, 50), 15*time.Minute); len(got) != 0 {
		t.Fatalf("expected taken slot to be excluded, got %+v", got)
	}
}

func TestReminderService_WindowCrossesMidnight(t *testing.T) {
	s, _ := newTestStore(t)
	seedMedication(t, s, func(m *domain.Medication) {
		m.Frequency = domain.FrequencyTwiceDaily
		m.Times = []string{"00:10", "23:50"}
	})
	svc := &ReminderService{Store: s, Location: time.UTC}

	got := svc.Due(context.Background(), clockAt(23, 40), time.Hour)
	if len(got) != 2 || got[0].Time != "23:50" || got[1].Time != "00:10" {
		t.Fatalf("expected 23:50 today then 00:10 tomorrow, got %+v", got)
	}
	if !got[1].At.Equal(clockAt(0, 10).AddDate(0, 0, 1)) {
		t.Fatalf("unexpected instant %v", got[1].At)
	}
}

func TestReminderService_ReminderDisabledExcluded(t *testing.T) {
	s, _ := newTestStore(t)
	seedMedication(t, s, func(m *domain.Medication) { m.ReminderEnabled = false })
	svc := &ReminderService{Store: s, Location: time.UTC}
	if got := svc.Due(context.Background(), clockAt(8, 50), time.Hour); len(got) != 0 {
		t.Fatalf("expected no reminders, got %+v", got)
	}
}

func TestReminderService_Dispatch(t *testing.T) {
	s, _ := newTestStore(t)
	seedMedication(t, s) // supply 5 at threshold 5 → refill alert
	n := &recordingNotifier{}
	svc := &ReminderService{Store: s, Location: time.UTC, Notifier: n, Window: 20 * time.Minute}

	res := svc.Dispatch(context.Background(), clockAt(8, 45))
	if len(res.Reminders) != 1 || len(n.doses) != 1 || res.Failed != 0 {
		t.Fatalf("unexpected dispatch: %+v", res)
	}
	if len(res.RefillAlerts) != 1 || len(n.refills) != 1 {
		t.Fatalf("expected one refill alert, got %+v", res.RefillAlerts)
	}

	n.doseErr = errors.New("offline")
	res = svc.Dispatch(context.Background(), clockAt(8, 45))
	if res.Failed != 1 {
		t.Fatalf("expected 1 failed delivery, got %d", res.Failed)
	}
}

func TestReminderService_DefaultNotifier(t *testing.T) {
	s, _ := newTestStore(t)
	seedMedication(t, s)
	svc := &ReminderService{Store: s, Location: time.UTC}
	if res := svc.Dispatch(context.Background(), clockAt(8, 50)); res.Failed != 0 || len(res.Reminders) != 1 {
		t.Fatalf("unexpected dispatch with LogNotifier: %+v", res)
	}
}
