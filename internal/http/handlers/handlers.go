// Package handlers implements the HTTP endpoints of the loopback bridge.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses (including conditional
// and replayed responses).
package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/repo"
	"github.com/tbourn/medremind-core/internal/schedule"
	"github.com/tbourn/medremind-core/internal/services"
	"github.com/tbourn/medremind-core/internal/supply"
	"github.com/tbourn/medremind-core/internal/utils"
)

//
// Service contracts (context-aware)
//

// MedicationService manages the medication collection.
type MedicationService interface {
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Medication, int64)
	Get(ctx context.Context, id string) (*domain.Medication, error)
	Add(ctx context.Context, m domain.Medication) (*domain.Medication, error)
	Update(ctx context.Context, id string, patch services.MedicationPatch) (*domain.Medication, error)
	Refill(ctx context.Context, id string) (*domain.Medication, error)
	Delete(ctx context.Context, id string) error
}

// DoseService records and lists dose history entries.
type DoseService interface {
	// Record appends an entry; the boolean reports an idempotent replay.
	Record(ctx context.Context, in services.RecordDoseInput) (*domain.DoseHistory, bool, error)
	List(ctx context.Context) []domain.DoseHistory
	ListForDate(ctx context.Context, day time.Time) []domain.DoseHistory
	ListForMedication(ctx context.Context, medicationID string) []domain.DoseHistory
	ClearAll(ctx context.Context) error
}

// ScheduleService resolves the daily schedule.
type ScheduleService interface {
	Day(ctx context.Context, date time.Time, all bool) schedule.DailyStatus
}

// ReminderService computes due reminders and refill alerts.
type ReminderService interface {
	Due(ctx context.Context, now time.Time, window time.Duration) []services.Reminder
	RefillAlerts(ctx context.Context) []supply.Alert
	Dispatch(ctx context.Context, now time.Time) services.DispatchResult
}

// AuthService manages the local PIN.
type AuthService interface {
	Status(ctx context.Context) services.AuthStatus
	CreatePIN(ctx context.Context, email, pin string) error
	Verify(ctx context.Context, pin string) error
	Reset(ctx context.Context, code string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	medSvc   MedicationService
	doseSvc  DoseService
	schedSvc ScheduleService
	remSvc   ReminderService
	authSvc  AuthService

	// Location interprets ?date= query values. Defaults to time.Local.
	Location *time.Location
	// Now is the clock used for "today" and due reminders.
	Now func() time.Time
	// ReminderWindow is the look-ahead used when ?window= is absent.
	ReminderWindow time.Duration
	// GateEnabled is reported by /auth/status.
	GateEnabled bool
}

// New constructs and returns a Handlers instance bound to the given services.
func New(med MedicationService, dose DoseService, sched ScheduleService, rem ReminderService, auth AuthService) *Handlers {
	return &Handlers{
		medSvc:         med,
		doseSvc:        dose,
		schedSvc:       sched,
		remSvc:         rem,
		authSvc:        auth,
		Location:       time.Local,
		Now:            time.Now,
		ReminderWindow: 15 * time.Minute,
	}
}

func (h *Handlers) now() time.Time {
	if h.Now == nil {
		return time.Now().In(h.loc())
	}
	return h.Now().In(h.loc())
}

func (h *Handlers) loc() *time.Location {
	if h.Location == nil {
		return time.Local
	}
	return h.Location
}

// collectionDB reaches the database behind the concrete medication service,
// for conditional responses. Nil when the service is not store-backed.
func (h *Handlers) collectionDB() *gorm.DB {
	if svc, ok := h.medSvc.(*services.MedicationService); ok {
		if gs, ok := svc.Store.(*repo.GormStore); ok {
			return gs.DB
		}
	}
	return nil
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}
