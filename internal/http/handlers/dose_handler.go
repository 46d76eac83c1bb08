// Dose history HTTP handlers.
//
// This file exposes REST endpoints for the dose ledger:
//   - POST   /doses  (record a taken or skipped dose)
//   - GET    /doses  (list, optionally by ?date= or ?medication_id=)
//   - DELETE /data   (clear medications and dose history)
//
// Idempotency:
// If the client supplies an Idempotency-Key header and an entry was already
// recorded under that key, the handler returns the recorded entry with 200
// and sets `Idempotency-Replayed: true` instead of recording it twice.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/http/middleware"
	"github.com/tbourn/medremind-core/internal/services"
	"github.com/tbourn/medremind-core/internal/utils"
)

//
// DTOs
//

// RecordDoseRequest is the JSON payload for recording a dose.
type RecordDoseRequest struct {
	MedicationID string `json:"medicationId" binding:"required" example:"0b9d3c1e-6a43-4a43-9a9e-1e1c5f9d2d11"`
	// Taken defaults to true; false records a skipped dose.
	Taken *bool `json:"taken" example:"true"`
	// Timestamp defaults to now.
	Timestamp *time.Time `json:"timestamp" example:"2025-03-10T09:05:00Z"`
}

// ListDosesResponse wraps ledger entries.
type ListDosesResponse struct {
	Doses []domain.DoseHistory `json:"doses"`
}

//
// Handlers
//

// RecordDose godoc
// @ID          recordDose
// @Summary     Record a dose
// @Description Appends a ledger entry. A taken dose of a known medication decrements its supply by one in the same transaction.
// @Description Supports idempotency via the Idempotency-Key header (same key → same entry).
// @Tags        Doses
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.RecordDoseRequest  true  "Dose"
//
// @Success     201  {object}  domain.DoseHistory  "Recorded"
// @Success     200  {object}  domain.DoseHistory  "Replayed"
// @Header      200  {string}  Idempotency-Replayed  "true on replay"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     503  {object}  handlers.ErrorResponse  "Data could not be saved"
// @Router      /doses [post]
func (h *Handlers) RecordDose(c *gin.Context) {
	var req RecordDoseRequest
	if !bindJSON(c, &req, "medicationId required") {
		return
	}
	if strings.TrimSpace(req.MedicationID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "medicationId required")
		return
	}

	in := services.RecordDoseInput{
		MedicationID: req.MedicationID,
		Taken:        true,
		Timestamp:    h.now(),
	}
	if req.Taken != nil {
		in.Taken = *req.Taken
	}
	if req.Timestamp != nil && !req.Timestamp.IsZero() {
		in.Timestamp = *req.Timestamp
	}
	if key, ok := middleware.GetIdempotencyKey(c); ok {
		in.IdempotencyKey = key
	} else {
		in.IdempotencyKey = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	}

	d, replayed, err := h.doseSvc.Record(c.Request.Context(), in)
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, d)
		return
	}
	ok(c, http.StatusCreated, d)
}

// ListDoses godoc
// @ID          listDoses
// @Summary     List dose history
// @Description Returns ledger entries in recording order. With date, only entries on that calendar day; with medication_id, only that medication's entries.
// @Tags        Doses
// @Produce     json
//
// @Param       date           query  string  false "Calendar day (YYYY-MM-DD)"  example(2025-03-10)
// @Param       medication_id  query  string  false "Medication ID"              format(uuid)
//
// @Success     200  {object} handlers.ListDosesResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad date"
// @Router      /doses [get]
func (h *Handlers) ListDoses(c *gin.Context) {
	ctx := c.Request.Context()

	var doses []domain.DoseHistory
	switch {
	case strings.TrimSpace(c.Query("date")) != "":
		day, err := utils.ParseDay(c.Query("date"), h.loc(), time.Time{})
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		doses = h.doseSvc.ListForDate(ctx, day)
		if id := strings.TrimSpace(c.Query("medication_id")); id != "" {
			doses = filterByMedication(doses, id)
		}
	case strings.TrimSpace(c.Query("medication_id")) != "":
		doses = h.doseSvc.ListForMedication(ctx, strings.TrimSpace(c.Query("medication_id")))
	default:
		doses = h.doseSvc.List(ctx)
	}
	ok(c, http.StatusOK, ListDosesResponse{Doses: doses})
}

func filterByMedication(doses []domain.DoseHistory, id string) []domain.DoseHistory {
	out := make([]domain.DoseHistory, 0, len(doses))
	for _, d := range doses {
		if d.MedicationID == id {
			out = append(out, d)
		}
	}
	return out
}

// ClearData godoc
// @ID          clearData
// @Summary     Clear all data
// @Description Deletes every medication and the whole dose history. The PIN is kept.
// @Tags        Data
//
// @Success     204  {string} string "No Content"
// @Failure     503  {object} handlers.ErrorResponse "Data could not be cleared"
// @Router      /data [delete]
func (h *Handlers) ClearData(c *gin.Context) {
	if err := h.doseSvc.ClearAll(c.Request.Context()); err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Warn().Msg("all medication data cleared")
	noContent(c)
}
