// Package services – AuthService
//
// This file implements the PIN gate in front of the app: a single
// credentials record holding a recovery email and a bcrypt hash of a 4-digit
// PIN. The gate only decides whether the session may proceed; schedule and
// ledger logic never read it.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"github.com/tbourn/medremind-core/internal/domain"
	"github.com/tbourn/medremind-core/internal/repo"
)

// AuthStatus reports whether a PIN is configured.
type AuthStatus struct {
	Configured bool   `json:"configured"`
	Email      string `json:"email,omitempty"`
}

// AuthService manages the PIN credentials.
type AuthService struct {
	Store repo.Store
	// ResetCode is the verification code accepted by Reset. Empty disables reset.
	ResetCode string
	// Cost is the bcrypt cost; defaults to bcrypt.DefaultCost.
	Cost int
	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *AuthService) cost() int {
	if s.Cost < bcrypt.MinCost {
		return bcrypt.DefaultCost
	}
	return s.Cost
}

// Status reports whether credentials exist and the recovery email, masked.
func (s *AuthService) Status(ctx context.Context) AuthStatus {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Status")
	defer span.End()

	c := repo.GetCredentials(ctx, s.Store)
	if c == nil {
		return AuthStatus{}
	}
	return AuthStatus{Configured: true, Email: MaskEmail(c.Email)}
}

// CreatePIN stores a new PIN. It fails with ErrPINExists when one is set and
// with the read error when the stored record cannot be read.
func (s *AuthService) CreatePIN(ctx context.Context, email, pin string) error {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "CreatePIN")
	defer span.End()

	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return ErrInvalidEmail
	}
	if !ValidPIN(pin) {
		return ErrInvalidPIN
	}
	existing, err := repo.LoadCredentials(ctx, s.Store)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if existing != nil {
		return ErrPINExists
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.cost())
	if err != nil {
		span.RecordError(err)
		return err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return repo.SaveCredentials(ctx, s.Store, domain.Credentials{
		Email:     addr.Address,
		PINHash:   string(hash),
		CreatedAt: now().UTC(),
	})
}

// Verify checks pin against the stored hash.
func (s *AuthService) Verify(ctx context.Context, pin string) error {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Verify")
	defer span.End()

	c := repo.GetCredentials(ctx, s.Store)
	if c == nil {
		return ErrNoPIN
	}
	err := bcrypt.CompareHashAndPassword([]byte(c.PINHash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrWrongPIN
	}
	return err
}

// Reset deletes the credentials when code matches the configured
// verification code, so a new PIN can be created.
func (s *AuthService) Reset(ctx context.Context, code string) error {
	ctx, span := otel.Tracer("services/AuthService").Start(ctx, "Reset")
	defer span.End()

	if s.ResetCode == "" {
		return ErrResetDisabled
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(code)), []byte(s.ResetCode)) != 1 {
		return ErrWrongResetCode
	}
	return repo.DeleteCredentials(ctx, s.Store)
}

// ValidPIN reports whether pin is exactly four ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}

// MaskEmail keeps the first character of the local part and the domain,
// e.g. "j***@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return ""
	}
	return email[:1] + "***" + email[at:]
}
