// Medication HTTP handlers.
//
// This file exposes REST endpoints for medication resources:
//   - GET    /medications              (list, paginated, ETag support)
//   - POST   /medications              (add)
//   - GET    /medications/{id}         (get)
//   - PATCH  /medications/{id}         (partial update)
//   - DELETE /medications/{id}         (delete; dose history is kept)
//   - POST   /medications/{id}/refill  (restore supply to total)
package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/http/middleware"
	"github.com/tbourn/medremind-core/internal/repo"
	"github.com/tbourn/medremind-core/internal/services"
)

//
// DTOs
//

// CreateMedicationRequest is the JSON payload for adding a medication.
type CreateMedicationRequest struct {
	Name      string           `json:"name" example:"Aspirin"`
	Dosage    string           `json:"dosage" example:"100mg"`
	Frequency domain.Frequency `json:"frequency" swaggertype:"string" enums:"Once daily,Twice daily,Three times daily,Four times daily,As needed" example:"Twice daily"`
	// Times defaults to the canonical slots of the frequency when empty.
	Times []string `json:"times" example:"09:00,21:00"`
	// StartDate defaults to now.
	StartDate *time.Time      `json:"startDate" example:"2025-03-10T08:00:00Z"`
	Duration  domain.Duration `json:"duration" swaggertype:"string" enums:"7 days,14 days,30 days,90 days,Ongoing" example:"30 days"`
	Color     string          `json:"color" example:"#4CAF50"`
	Notes     string          `json:"notes" example:"with food"`
	// ReminderEnabled defaults to true.
	ReminderEnabled *bool `json:"reminderEnabled" example:"true"`
	CurrentSupply   int   `json:"currentSupply" example:"30"`
	TotalSupply     int   `json:"totalSupply" example:"30"`
	RefillAt        int   `json:"refillAt" example:"5"`
	RefillReminder  bool  `json:"refillReminder" example:"true"`
}

func (r CreateMedicationRequest) medication() domain.Medication {
	m := domain.Medication{
		Name:            r.Name,
		Dosage:          r.Dosage,
		Frequency:       r.Frequency,
		Times:           r.Times,
		Duration:        r.Duration,
		Color:           r.Color,
		Notes:           r.Notes,
		ReminderEnabled: true,
		CurrentSupply:   r.CurrentSupply,
		TotalSupply:     r.TotalSupply,
		RefillAt:        r.RefillAt,
		RefillReminder:  r.RefillReminder,
	}
	if r.StartDate != nil {
		m.StartDate = *r.StartDate
	}
	if r.ReminderEnabled != nil {
		m.ReminderEnabled = *r.ReminderEnabled
	}
	return m
}

// UpdateMedicationRequest is the JSON payload for a partial update. Absent
// fields are left unchanged.
type UpdateMedicationRequest struct {
	Name            *string           `json:"name,omitempty" example:"Aspirin"`
	Dosage          *string           `json:"dosage,omitempty" example:"200mg"`
	Frequency       *domain.Frequency `json:"frequency,omitempty" swaggertype:"string" example:"Once daily"`
	Times           *[]string         `json:"times,omitempty"`
	StartDate       *time.Time        `json:"startDate,omitempty"`
	Duration        *domain.Duration  `json:"duration,omitempty" swaggertype:"string" example:"Ongoing"`
	Color           *string           `json:"color,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	ReminderEnabled *bool             `json:"reminderEnabled,omitempty"`
	CurrentSupply   *int              `json:"currentSupply,omitempty"`
	TotalSupply     *int              `json:"totalSupply,omitempty"`
	RefillAt        *int              `json:"refillAt,omitempty"`
	RefillReminder  *bool             `json:"refillReminder,omitempty"`
}

func (r UpdateMedicationRequest) patch() services.MedicationPatch {
	return services.MedicationPatch{
		Name:            r.Name,
		Dosage:          r.Dosage,
		Frequency:       r.Frequency,
		Times:           r.Times,
		StartDate:       r.StartDate,
		Duration:        r.Duration,
		Color:           r.Color,
		Notes:           r.Notes,
		ReminderEnabled: r.ReminderEnabled,
		CurrentSupply:   r.CurrentSupply,
		TotalSupply:     r.TotalSupply,
		RefillAt:        r.RefillAt,
		RefillReminder:  r.RefillReminder,
	}
}

// ListMedicationsResponse wraps a page of medications and pagination information.
type ListMedicationsResponse struct {
	Medications []domain.Medication `json:"medications"`
	Pagination  Pagination          `json:"pagination"`
}

//
// Handlers
//

// ListMedications godoc
// @ID          listMedications
// @Summary     List medications (paginated)
// @Description Returns medications in insertion order. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Medications
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"medications:2:1741600000\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(200) default(50)
//
// @Success     200  {object} handlers.ListMedicationsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     423  {object} handlers.ErrorResponse "Locked"
// @Router      /medications [get]
func (h *Handlers) ListMedications(c *gin.Context) {
	ctx := c.Request.Context()
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	if db := h.collectionDB(); db != nil {
		size, updatedAt, err := repo.CollectionStats(ctx, db, domain.CollectionMedications)
		if err == nil {
			var ts int64
			if updatedAt != nil {
				ts = updatedAt.UnixNano()
			}
			etag := fmt.Sprintf(`W/"medications:%d:%d:%d:%d"`, size, ts, page, pageSize)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total := h.medSvc.ListPage(ctx, page, pageSize)
	ok(c, http.StatusOK, ListMedicationsResponse{
		Medications: items,
		Pagination:  newPagination(page, pageSize, total),
	})
}

// AddMedication godoc
// @ID          addMedication
// @Summary     Add a medication
// @Description Validates and stores a new medication. Times default to the canonical slots of the frequency.
// @Tags        Medications
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateMedicationRequest  true  "Medication"
//
// @Success     201  {object}  domain.Medication
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid medication"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     503  {object}  handlers.ErrorResponse  "Data could not be saved"
// @Router      /medications [post]
func (h *Handlers) AddMedication(c *gin.Context) {
	var req CreateMedicationRequest
	if !bindJSON(c, &req, "invalid JSON body") {
		return
	}
	m := req.medication()
	if m.StartDate.IsZero() {
		m.StartDate = h.now()
	}

	out, err := h.medSvc.Add(c.Request.Context(), m)
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Str("medication_id", out.ID).Msg("medication added")
	ok(c, http.StatusCreated, out)
}

// GetMedication godoc
// @ID          getMedication
// @Summary     Get a medication
// @Tags        Medications
// @Produce     json
//
// @Param       id  path  string  true  "Medication ID"  format(uuid)
//
// @Success     200  {object} domain.Medication
// @Failure     404  {object} handlers.ErrorResponse "Medication not found"
// @Router      /medications/{id} [get]
func (h *Handlers) GetMedication(c *gin.Context) {
	m, err := h.medSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// UpdateMedication godoc
// @ID          updateMedication
// @Summary     Update a medication
// @Description Applies a partial update and revalidates. Changing the frequency without times resets the slots.
// @Tags        Medications
// @Accept      json
// @Produce     json
//
// @Param       id    path  string  true  "Medication ID"  format(uuid)
// @Param       body  body  handlers.UpdateMedicationRequest  true  "Fields to change"
//
// @Success     200  {object} domain.Medication
// @Failure     400  {object} handlers.ErrorResponse "Invalid medication"
// @Failure     413  {object} handlers.ErrorResponse "Body too large"
// @Failure     404  {object} handlers.ErrorResponse "Medication not found"
// @Failure     503  {object} handlers.ErrorResponse "Data could not be saved"
// @Router      /medications/{id} [patch]
func (h *Handlers) UpdateMedication(c *gin.Context) {
	var req UpdateMedicationRequest
	if !bindJSON(c, &req, "invalid JSON body") {
		return
	}
	m, err := h.medSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.patch())
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}

// DeleteMedication godoc
// @ID          deleteMedication
// @Summary     Delete a medication
// @Description Removes the medication. Its dose history is kept.
// @Tags        Medications
//
// @Param       id  path  string  true  "Medication ID"  format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     404  {object} handlers.ErrorResponse "Medication not found"
// @Failure     503  {object} handlers.ErrorResponse "Data could not be saved"
// @Router      /medications/{id} [delete]
func (h *Handlers) DeleteMedication(c *gin.Context) {
	if err := h.medSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}

// RefillMedication godoc
// @ID          refillMedication
// @Summary     Refill a medication
// @Description Sets the current supply to the total supply and records the refill date.
// @Tags        Medications
// @Produce     json
//
// @Param       id  path  string  true  "Medication ID"  format(uuid)
//
// @Success     200  {object} domain.Medication
// @Failure     404  {object} handlers.ErrorResponse "Medication not found"
// @Failure     503  {object} handlers.ErrorResponse "Data could not be saved"
// @Router      /medications/{id}/refill [post]
func (h *Handlers) RefillMedication(c *gin.Context) {
	m, err := h.medSvc.Refill(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, m)
}
