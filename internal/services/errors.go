// Package services defines the business logic for medications, the dose
// ledger, daily schedules, reminders and the PIN gate.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Validation failures from the domain layer (domain.ErrInvalidMedication) and
// storage write failures (repo.ErrStorageWrite) are passed through unchanged;
// translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Medication and ledger errors.
var (
	// ErrMedicationNotFound indicates that no medication has the requested id.
	ErrMedicationNotFound = errors.New("medication not found")

	// ErrDoseNotFound indicates that no ledger entry has the requested id.
	ErrDoseNotFound = errors.New("dose not found")

	// ErrInvalidDose is returned when a dose is recorded without a
	// medication id.
	ErrInvalidDose = errors.New("medication id is required")
)

// PIN gate errors.
var (
	// ErrInvalidEmail is returned when the recovery email is missing or malformed.
	ErrInvalidEmail = errors.New("a valid email is required")

	// ErrInvalidPIN is returned when a PIN is not exactly four digits.
	ErrInvalidPIN = errors.New("pin must be exactly 4 digits")

	// ErrPINExists is returned when creating a PIN while one is already set.
	ErrPINExists = errors.New("pin already configured")

	// ErrNoPIN is returned when verifying against an unconfigured gate.
	ErrNoPIN = errors.New("no pin configured")

	// ErrWrongPIN is returned when the supplied PIN does not match.
	ErrWrongPIN = errors.New("incorrect pin")

	// ErrWrongResetCode is returned when the verification code is wrong.
	ErrWrongResetCode = errors.New("incorrect verification code")

	// ErrResetDisabled is returned when no verification code is configured.
	ErrResetDisabled = errors.New("pin reset is disabled")
)
