package user

import (
	"time"

	"github.com/delordemm1/go-identity-core/internal/session"
	"github.com/google/uuid"
)

// Purpose names what an ephemeral token authorizes.
type Purpose string

const (
	PurposeEmailVerification Purpose = "email_verification"
	PurposePasswordReset     Purpose = "password_reset"
	PurposeParentalConsent   Purpose = "parental_consent"
)

const (
	EmailVerificationTTL = 24 * time.Hour
	PasswordResetTTL     = time.Hour
	ParentalConsentTTL   = 7 * 24 * time.Hour
)

// TTL is the lifetime of a token issued for p.
func (p Purpose) TTL() time.Duration {
	switch p {
	case PurposeEmailVerification:
		return EmailVerificationTTL
	case PurposePasswordReset:
		return PasswordResetTTL
	case PurposeParentalConsent:
		return ParentalConsentTTL
	}
	return 0
}

func (p Purpose) alreadyUsed() *DomainError {
	if p == PurposeParentalConsent {
		return ErrConsentAlreadyApproved
	}
	return ErrTokenAlreadyUsed
}

// ConsentDetails identifies the parent or guardian a consent token was sent to.
// The parent is not a user.
type ConsentDetails struct {
	ParentEmail  string
	ParentName   string
	Relationship string
}

// EphemeralToken is a single-use, time-boxed grant shared by email verification,
// password reset and parental consent.
type EphemeralToken struct {
	ID      string
	UserID  string
	Purpose Purpose
	// Token is the plaintext value, only populated when the token is issued or looked up.
	// Only TokenHash is persisted.
	Token     string
	TokenHash string
	ExpiresAt time.Time
	Used      bool
	UsedAt    *time.Time
	CreatedAt time.Time
	Consent   *ConsentDetails
}

// NewEphemeralToken issues a token for userID that expires after the purpose TTL.
func NewEphemeralToken(userID string, purpose Purpose, plaintext string, now time.Time) (*EphemeralToken, error) {
	if purpose.TTL() == 0 {
		return nil, invalid("purpose", "is invalid")
	}
	if userID == "" || plaintext == "" {
		return nil, ErrValidation.WithDetail("token owner and value are required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	return &EphemeralToken{
		ID:        id.String(),
		UserID:    userID,
		Purpose:   purpose,
		Token:     plaintext,
		TokenHash: session.HashToken(plaintext),
		ExpiresAt: now.Add(purpose.TTL()),
		CreatedAt: now,
	}, nil
}

// IsValid reports whether the token is unused and not yet expired.
func (t *EphemeralToken) IsValid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// Consume marks the token used. A used token always reports AlreadyUsed, even once expired.
func (t *EphemeralToken) Consume(now time.Time) error {
	if t.Used {
		return t.Purpose.alreadyUsed()
	}
	if !now.Before(t.ExpiresAt) {
		return ErrTokenExpired
	}
	t.Used = true
	t.UsedAt = &now
	return nil
}

// Expire ends the token's validity immediately.
func (t *EphemeralToken) Expire(now time.Time) {
	if t.ExpiresAt.After(now) {
		t.ExpiresAt = now
	}
}
