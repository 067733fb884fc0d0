package user

import (
	"context"
	"errors"
)

// SendEmailVerification issues a fresh verification token for a self-verifiable user.
func (s *service) SendEmailVerification(ctx context.Context, userID string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return s.internal("send verification: find user", err)
	}
	return s.sendVerification(ctx, u)
}

func (s *service) sendVerification(ctx context.Context, u *User) error {
	if u.Verified {
		return ErrAlreadyVerified
	}
	if u.RequiresParentalConsent() {
		return ErrInvalidState.WithDetail("this account is verified through parental consent")
	}
	if u.Status == StatusDeactivated {
		return ErrInvalidState.WithDetail("account is deactivated")
	}

	t, err := s.issueToken(ctx, u.ID, PurposeEmailVerification, nil)
	if err != nil {
		return err
	}
	s.notify(ctx, u.ID, "verification", func(ctx context.Context) error {
		return s.notifier.SendVerification(ctx, u.Email, u.DisplayName(), t.Token)
	})
	return nil
}

// VerifyEmail consumes a verification token and activates its user.
func (s *service) VerifyEmail(ctx context.Context, plaintext string) (*User, error) {
	t, err := s.redeem(ctx, PurposeEmailVerification, plaintext)
	if err != nil {
		return nil, err
	}

	u, err := s.users.FindByID(ctx, t.UserID)
	if err != nil {
		return nil, s.internal("verify email: find user", err)
	}
	if u.Verified {
		return nil, ErrAlreadyVerified
	}
	now := s.now()
	if err := u.VerifyEmail(now); err != nil {
		return nil, err
	}

	if err := s.tokens.MarkUsed(ctx, t); err != nil {
		return nil, s.internal("verify email: mark used", err)
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, s.internal("verify email: update user", err)
	}

	s.logger.Info("email verified", "user_id", u.ID)
	s.publish(ctx, EmailVerifiedEvent{baseEvent: newBase(u.ID, now)})
	s.notify(ctx, u.ID, "welcome", func(ctx context.Context) error {
		return s.notifier.SendWelcome(ctx, u.Email, u.DisplayName())
	})
	return u, nil
}

// ResendEmailVerification is rate limited per email and silent for unknown,
// verified or consent-gated addresses, so it cannot be used to probe accounts.
func (s *service) ResendEmailVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, "verify:"+email, s.resendCooldown)
		if err != nil {
			return s.internal("resend verification: rate limit", err)
		}
		if !ok {
			return ErrResendTooSoon
		}
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return s.internal("resend verification: find user", err)
	}
	if u.Verified || u.RequiresParentalConsent() || u.Status == StatusDeactivated {
		return nil
	}
	return s.sendVerification(ctx, u)
}
