package user

import (
	"context"
	"errors"
	"strings"

	"github.com/delordemm1/go-identity-core/internal/validation"
)

type ConsentRequestInput struct {
	UserID       string
	ParentEmail  string
	ParentName   string
	Relationship string
}

// RequestParentalConsent emails a consent link to the parent of a user under ConsentAge.
// Only one consent request may be pending per user.
func (s *service) RequestParentalConsent(ctx context.Context, in ConsentRequestInput) error {
	u, err := s.users.FindByID(ctx, in.UserID)
	if err != nil {
		return s.internal("consent request: find user", err)
	}
	if !u.RequiresParentalConsent() {
		return ErrConsentNotRequired
	}
	if u.Verified {
		return ErrConsentAlreadyApproved
	}
	if u.Status == StatusDeactivated {
		return ErrInvalidState.WithDetail("account is deactivated")
	}

	_, err = s.tokens.FindPendingForUser(ctx, PurposeParentalConsent, u.ID, s.now())
	if err == nil {
		return ErrConsentPending
	}
	if !errors.Is(err, ErrTokenNotFound) {
		return s.internal("consent request: find pending", err)
	}

	parentEmail := NormalizeEmail(in.ParentEmail)
	if !validation.IsEmail(parentEmail) {
		return invalid("parentEmail", "must be a valid email")
	}
	if parentEmail == u.Email {
		return invalid("parentEmail", "must differ from the child's email")
	}

	t, err := s.issueToken(ctx, u.ID, PurposeParentalConsent, &ConsentDetails{
		ParentEmail:  parentEmail,
		ParentName:   strings.TrimSpace(in.ParentName),
		Relationship: strings.TrimSpace(in.Relationship),
	})
	if err != nil {
		return err
	}

	s.logger.Info("parental consent requested", "user_id", u.ID)
	s.notify(ctx, u.ID, "parental consent", func(ctx context.Context) error {
		return s.notifier.SendParentalConsent(ctx, parentEmail, t.Consent.ParentName, u.DisplayName(), t.Token)
	})
	s.publish(ctx, ParentalConsentRequestedEvent{baseEvent: newBase(u.ID, s.now()), ParentEmail: parentEmail})
	return nil
}

// ApproveParentalConsent verifies the minor the token was issued for.
// It is the only way a user under ConsentAge becomes able to log in.
func (s *service) ApproveParentalConsent(ctx context.Context, plaintext string) (*User, error) {
	t, err := s.redeem(ctx, PurposeParentalConsent, plaintext)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, t.UserID)
	if err != nil {
		return nil, s.internal("consent approve: find user", err)
	}
	if u.Verified {
		return nil, ErrConsentAlreadyApproved
	}
	now := s.now()
	if err := u.VerifyEmail(now); err != nil {
		return nil, err
	}

	if err := s.tokens.MarkUsed(ctx, t); err != nil {
		return nil, s.internal("consent approve: mark used", err)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, s.internal("consent approve: update user", err)
	}

	s.logger.Info("parental consent approved", "user_id", u.ID)
	s.publish(ctx,
		ParentalConsentApprovedEvent{baseEvent: newBase(u.ID, now)},
		EmailVerifiedEvent{baseEvent: newBase(u.ID, now)},
	)
	s.notify(ctx, u.ID, "welcome", func(ctx context.Context) error {
		return s.notifier.SendWelcome(ctx, u.Email, u.DisplayName())
	})
	return u, nil
}
