package services

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/medremind-core/internal/repo"
	"github.com/tbourn/medremind-core/internal/schedule"
)

// ScheduleService resolves the daily dose schedule against the ledger.
type ScheduleService struct {
	Store repo.Store
	// Location defines calendar days; defaults to time.Local.
	Location *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *ScheduleService) loc() *time.Location {
	if s.Location == nil {
		return time.Local
	}
	return s.Location
}

func (s *ScheduleService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Day resolves the schedule for date's calendar day in the service
// location. With all=false only reminder-enabled medications are included.
func (s *ScheduleService) Day(ctx context.Context, date time.Time, all bool) schedule.DailyStatus {
	date = date.In(s.loc())
	ctx, span := otel.Tracer("services/ScheduleService").Start(ctx, "Day",
		trace.WithAttributes(
			attribute.String("date", date.Format("2006-01-02")),
			attribute.Bool("all", all),
		),
	)
	defer span.End()

	meds := repo.ListMedications(ctx, s.Store)
	doses := repo.ListDosesForDate(ctx, s.Store, date)
	st := schedule.Resolve(meds, doses, date, s.now(), schedule.Options{All: all})

	span.SetAttributes(
		attribute.Int("doses.total", st.TotalDoses),
		attribute.Int("doses.completed", st.CompletedDoses),
	)
	return st
}

// Today resolves the schedule for the current day.
func (s *ScheduleService) Today(ctx context.Context, all bool) schedule.DailyStatus {
	return s.Day(ctx, s.now(), all)
}
