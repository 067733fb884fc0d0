package user

import (
	"context"
	"errors"
)

// RequestPasswordReset emails a one hour reset token. Unknown emails succeed silently.
func (s *service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return s.internal("password reset: find user", err)
	}
	if u.Status == StatusDeactivated {
		return nil
	}

	t, err := s.issueToken(ctx, u.ID, PurposePasswordReset, nil)
	if err != nil {
		return err
	}
	s.notify(ctx, u.ID, "password reset", func(ctx context.Context) error {
		return s.notifier.SendPasswordReset(ctx, u.Email, u.DisplayName(), t.Token)
	})
	return nil
}

// FinalizePasswordReset consumes a reset token, sets the new password and ends every session.
func (s *service) FinalizePasswordReset(ctx context.Context, plaintext, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if !s.credentials.ValidateStrength(newPassword) {
		return ErrWeakPassword
	}

	t, err := s.redeem(ctx, PurposePasswordReset, plaintext)
	if err != nil {
		return err
	}
	u, err := s.users.FindByID(ctx, t.UserID)
	if err != nil {
		return s.internal("finalize reset: find user", err)
	}
	if u.Status == StatusDeactivated {
		return ErrInvalidState.WithDetail("account is deactivated")
	}

	if err := s.setPassword(ctx, u, newPassword, func() error { return s.tokens.MarkUsed(ctx, t) }); err != nil {
		return err
	}
	s.publish(ctx, PasswordChangedEvent{baseEvent: newBase(u.ID, s.now()), Reset: true})
	return nil
}

// ChangePassword requires the current password and ends every session of the user.
func (s *service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}
	if !s.credentials.ValidateStrength(newPassword) {
		return ErrWeakPassword
	}

	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return s.internal("change password: find user", err)
	}
	if !s.credentials.Compare(currentPassword, u.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := s.setPassword(ctx, u, newPassword, nil); err != nil {
		return err
	}
	s.publish(ctx, PasswordChangedEvent{baseEvent: newBase(u.ID, s.now())})
	return nil
}

// setPassword hashes and stores a new password, runs beforeSave first, then ends all sessions.
func (s *service) setPassword(ctx context.Context, u *User, password string, beforeSave func() error) error {
	hash, err := s.credentials.Hash(password)
	if err != nil {
		return s.internal("hash password", err)
	}
	if err := u.UpdatePassword(hash, s.now()); err != nil {
		return err
	}
	if beforeSave != nil {
		if err := beforeSave(); err != nil {
			return s.internal("set password", err)
		}
	}
	if err := s.users.Update(ctx, u); err != nil {
		return s.internal("set password: update user", err)
	}
	if _, err := s.sessions.InvalidateAllForUser(ctx, u.ID); err != nil {
		return s.internal("set password: invalidate sessions", err)
	}
	s.logger.Info("password updated", "user_id", u.ID)
	return nil
}
