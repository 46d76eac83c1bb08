package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/http/middleware"
	"github.com/tbourn/medremind-core/internal/repo"
	"github.com/tbourn/medremind-core/internal/services"
)

// ErrorResponse is the error envelope every endpoint returns.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go)
	Code string `json:"code" example:"not_found"`
	// Safe to show to the user
	Message string `json:"message" example:"medication not found"`
	// Offending fields of a rejected medication
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// errorMapping binds a sentinel error to its HTTP status and code. An empty
// message means the sentinel's own text is shown.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var errorMappings = []errorMapping{
	{services.ErrMedicationNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
	{services.ErrDoseNotFound, http.StatusNotFound, ErrCodeNotFound, ""},
	{services.ErrInvalidDose, http.StatusBadRequest, ErrCodeBadRequest, ""},
	{services.ErrInvalidEmail, http.StatusBadRequest, ErrCodeBadRequest, ""},
	{services.ErrInvalidPIN, http.StatusBadRequest, ErrCodeBadRequest, ""},
	{services.ErrPINExists, http.StatusConflict, ErrCodeConflict, ""},
	{services.ErrNoPIN, http.StatusConflict, ErrCodeConflict, ""},
	{services.ErrWrongPIN, http.StatusUnauthorized, ErrCodeWrongPIN, ""},
	{services.ErrWrongResetCode, http.StatusUnauthorized, ErrCodeUnauthorized, ""},
	{services.ErrResetDisabled, http.StatusForbidden, ErrCodeResetDisabled, ""},
	// The client still holds what it sent, so retrying is safe.
	{repo.ErrStorageWrite, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "data could not be saved, try again"},
	// Stored data is unreadable, so the write was refused rather than
	// overwriting it.
	{repo.ErrStorageRead, http.StatusServiceUnavailable, ErrCodeStorageUnavailable, "stored data could not be read, nothing was changed"},
}

// fail aborts with the error envelope.
func fail(c *gin.Context, status int, code, msg string) {
	failWith(c, status, ErrorResponse{Code: code, Message: msg}, nil)
}

// failWith writes resp; 5xx responses are logged with cause.
func failWith(c *gin.Context, status int, resp ErrorResponse, cause error) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code)
		if cause != nil {
			ev = ev.Err(cause)
		}
		ev.Msg(resp.Message)
	}
	c.AbortWithStatusJSON(status, resp)
}

// failErr maps a service error to a response. Validation errors carry their
// field list; unknown errors become a generic 500 and only the log sees the
// cause.
func failErr(c *gin.Context, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		failWith(c, http.StatusBadRequest, ErrorResponse{
			Code:    ErrCodeValidation,
			Message: ve.Error(),
			Fields:  ve.Fields,
		}, nil)
		return
	}
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = m.target.Error()
		}
		failWith(c, m.status, ErrorResponse{Code: m.code, Message: msg}, err)
		return
	}
	failWith(c, http.StatusInternalServerError, ErrorResponse{
		Code:    ErrCodeInternal,
		Message: "internal server error",
	}, err)
}

// bindJSON decodes the body into dst. On failure it writes a 413 when the
// body hit the size cap and a 400 with msg otherwise, and returns false.
func bindJSON(c *gin.Context, dst any, msg string) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "request body too large")
	} else {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msg)
	}
	return false
}

// Fail lets the router write the same envelope for 404 and 405.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
