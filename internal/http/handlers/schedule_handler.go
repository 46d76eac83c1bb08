// Schedule, reminder and refill HTTP handlers.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medremind-core/internal/services"
	"github.com/tbourn/medremind-core/internal/supply"
	"github.com/tbourn/medremind-core/internal/sysutil"
	"github.com/tbourn/medremind-core/internal/utils"
)

// maxReminderWindow caps ?window= so a single request cannot walk months of
// calendar days.
const maxReminderWindow = 7 * 24 * time.Hour

// DueRemindersResponse lists reminders due within a window.
type DueRemindersResponse struct {
	Now       time.Time           `json:"now"`
	Window    string              `json:"window" example:"15m0s"`
	Reminders []services.Reminder `json:"reminders"`
}

// RefillAlertsResponse lists medications at or below their refill threshold.
type RefillAlertsResponse struct {
	Alerts []supply.Alert `json:"alerts"`
}

// GetSchedule godoc
// @ID          getSchedule
// @Summary     Daily schedule with dose status
// @Description Resolves every expected dose of the day as taken, missed or upcoming, with progress.
// @Description By default only medications with reminders enabled are considered; all=true includes every medication.
// @Tags        Schedule
// @Produce     json
//
// @Param       date  query  string  false "Calendar day (YYYY-MM-DD), default today"  example(2025-03-10)
// @Param       all   query  bool    false "Include medications with reminders disabled"
//
// @Success     200  {object} schedule.DailyStatus
// @Failure     400  {object} handlers.ErrorResponse "Bad date"
// @Router      /schedule [get]
func (h *Handlers) GetSchedule(c *gin.Context) {
	now := h.now()
	day, err := utils.ParseDay(c.Query("date"), h.loc(), now)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}
	all := sysutil.IsTruthy(c.Query("all"))
	ok(c, http.StatusOK, h.schedSvc.Day(c.Request.Context(), day, all))
}

// ListRefillAlerts godoc
// @ID          listRefillAlerts
// @Summary     Refill alerts
// @Description Lists medications with refill reminders whose current supply is at or below the refill threshold.
// @Tags        Refills
// @Produce     json
//
// @Success     200  {object} handlers.RefillAlertsResponse
// @Router      /refills [get]
func (h *Handlers) ListRefillAlerts(c *gin.Context) {
	ok(c, http.StatusOK, RefillAlertsResponse{Alerts: h.remSvc.RefillAlerts(c.Request.Context())})
}

// DueReminders godoc
// @ID          dueReminders
// @Summary     Reminders due soon
// @Description Upcoming, unsatisfied doses of reminder-enabled medications whose time falls within [now, now+window].
// @Tags        Reminders
// @Produce     json
//
// @Param       window  query  string  false "Look-ahead as a Go duration"  example(30m)
//
// @Success     200  {object} handlers.DueRemindersResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad window"
// @Router      /reminders/due [get]
func (h *Handlers) DueReminders(c *gin.Context) {
	window, err := utils.ParseWindow(c.Query("window"), h.ReminderWindow, maxReminderWindow)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "window must be a duration between 0 and 168h")
		return
	}
	now := h.now()
	ok(c, http.StatusOK, DueRemindersResponse{
		Now:       now,
		Window:    window.String(),
		Reminders: h.remSvc.Due(c.Request.Context(), now, window),
	})
}

// DispatchReminders godoc
// @ID          dispatchReminders
// @Summary     Dispatch due reminders
// @Description Hands due reminders and refill alerts to the configured notifier and reports what was sent.
// @Tags        Reminders
// @Produce     json
//
// @Success     200  {object} services.DispatchResult
// @Router      /reminders/dispatch [post]
func (h *Handlers) DispatchReminders(c *gin.Context) {
	ok(c, http.StatusOK, h.remSvc.Dispatch(c.Request.Context(), h.now()))
}
