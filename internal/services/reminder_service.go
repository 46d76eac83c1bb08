// Package services – ReminderService
//
// This file implements ReminderService, which turns the resolved schedule
// into due reminders and refill alerts. Delivery is not its concern: due
// items are handed to a Notifier, and the default LogNotifier only writes
// structured log events. Nothing is remembered between calls, so a
// reminder inside the window is produced again on the next Dispatch.
package services

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/medremind-core/internal/repo"
	"github.com/tbourn/medremind-core/internal/schedule"
	"github.com/tbourn/medremind-core/internal/supply"
)

// Reminder is a due, unsatisfied dose slot.
type Reminder struct {
	MedicationID string    `json:"medicationId"`
	Name         string    `json:"name"`
	Dosage       string    `json:"dosage"`
	Time         string    `json:"time"`
	At           time.Time `json:"at"`
}

// Notifier delivers reminders and refill alerts.
type Notifier interface {
	NotifyDose(ctx context.Context, r Reminder) error
	NotifyRefill(ctx context.Context, a supply.Alert) error
}

// LogNotifier writes each notification as a log event.
type LogNotifier struct{}

// NotifyDose implements Notifier.
func (LogNotifier) NotifyDose(ctx context.Context, r Reminder) error {
	log.Ctx(ctx).Info().
		Str("medication_id", r.MedicationID).
		Str("name", r.Name).
		Str("dosage", r.Dosage).
		Time("at", r.At).
		Msg("dose reminder")
	return nil
}

// NotifyRefill implements Notifier.
func (LogNotifier) NotifyRefill(ctx context.Context, a supply.Alert) error {
	log.Ctx(ctx).Info().
		Str("medication_id", a.MedicationID).
		Str("name", a.Name).
		Int("remaining", a.Remaining).
		Msg("refill needed")
	return nil
}

// DispatchResult summarizes one Dispatch call.
type DispatchResult struct {
	Reminders    []Reminder     `json:"reminders"`
	RefillAlerts []supply.Alert `json:"refillAlerts"`
	Failed       int            `json:"failed"`
}

// ReminderService computes due reminders and refill alerts.
type ReminderService struct {
	Store repo.Store
	// Notifier defaults to LogNotifier.
	Notifier Notifier
	// Location defines calendar days; defaults to time.Local.
	Location *time.Location
	// Window is the default look-ahead of Dispatch (default 15m).
	Window time.Duration
}

func (s *ReminderService) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *ReminderService) notifier() Notifier {
	if s.Notifier == nil {
		return LogNotifier{}
	}
	return s.Notifier
}

// Due returns the upcoming slots of reminder-enabled medications whose
// instant lies in [now, now+window], ordered by instant. Windows crossing
// midnight include slots of the following days.
func (s *ReminderService) Due(ctx context.Context, now time.Time, window time.Duration) []Reminder {
	ctx, span := otel.Tracer("services/ReminderService").Start(ctx, "Due",
		trace.WithAttributes(attribute.String("window", window.String())),
	)
	defer span.End()

	out := []Reminder{}
	if window < 0 {
		return out
	}
	now = now.In(s.loc())
	end := now.Add(window)

	meds := repo.ListMedications(ctx, s.Store)
	doses := repo.ListDoses(ctx, s.Store)

	y, m, d := now.Date()
	for day := time.Date(y, m, d, 0, 0, 0, 0, now.Location()); !day.After(end); day = day.AddDate(0, 0, 1) {
		st := schedule.Resolve(meds, doses, day, now, schedule.Options{})
		for _, sd := range st.Doses {
			if sd.Status != schedule.StatusUpcoming || sd.At.Before(now) || sd.At.After(end) {
				continue
			}
			out = append(out, Reminder{
				MedicationID: sd.MedicationID,
				Name:         sd.Name,
				Dosage:       sd.Dosage,
				Time:         sd.Time,
				At:           sd.At,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })

	span.SetAttributes(attribute.Int("reminders.count", len(out)))
	return out
}

// RefillAlerts lists medications needing a refill and updates the gauge.
func (s *ReminderService) RefillAlerts(ctx context.Context) []supply.Alert {
	ctx, span := otel.Tracer("services/ReminderService").Start(ctx, "RefillAlerts")
	defer span.End()

	alerts := supply.Alerts(repo.ListMedications(ctx, s.Store))
	refillAlerts.Set(float64(len(alerts)))
	span.SetAttributes(attribute.Int("alerts.count", len(alerts)))
	return alerts
}

// Dispatch hands due reminders and refill alerts to the Notifier. Delivery
// failures are counted and logged, never returned.
func (s *ReminderService) Dispatch(ctx context.Context, now time.Time) DispatchResult {
	ctx, span := otel.Tracer("services/ReminderService").Start(ctx, "Dispatch")
	defer span.End()

	window := s.Window
	if window <= 0 {
		window = 15 * time.Minute
	}
	res := DispatchResult{
		Reminders:    s.Due(ctx, now, window),
		RefillAlerts: s.RefillAlerts(ctx),
	}

	n := s.notifier()
	for _, r := range res.Reminders {
		if err := n.NotifyDose(ctx, r); err != nil {
			res.Failed++
			log.Ctx(ctx).Warn().Err(err).Str("medication_id", r.MedicationID).Msg("dose reminder not delivered")
			continue
		}
		remindersDispatched.Inc()
	}
	for _, a := range res.RefillAlerts {
		if err := n.NotifyRefill(ctx, a); err != nil {
			res.Failed++
			log.Ctx(ctx).Warn().Err(err).Str("medication_id", a.MedicationID).Msg("refill alert not delivered")
		}
	}

	span.SetAttributes(
		attribute.Int("reminders.count", len(res.Reminders)),
		attribute.Int("failed", res.Failed),
	)
	return res
}
