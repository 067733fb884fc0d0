package user

import (
	"context"
	"errors"
	"time"

	"github.com/delordemm1/go-identity-core/internal/session"
	"github.com/delordemm1/go-identity-core/internal/token"
)

type RegisterInput struct {
	Email     string
	Password  string
	Age       int
	FirstName string
	LastName  string
}

type LoginInput struct {
	Email      string
	Password   string
	DeviceInfo string
	IPAddress  string
}

// AuthResult is returned by every workflow that issues a token pair.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	// AccessExpiresAt is the expiry claimed by the access token.
	AccessExpiresAt time.Time
	SessionID       string
	SessionExpires  time.Time
	User            *User
}

// Register creates a self-registered user. Users who can verify themselves get a
// verification email; users under ConsentAge wait for RequestParentalConsent.
func (s *service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if !s.credentials.ValidateStrength(in.Password) {
		return nil, ErrWeakPassword
	}

	email := NormalizeEmail(in.Email)
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailExists
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, s.internal("register: find user", err)
	}

	hash, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, s.internal("register: hash password", err)
	}

	u, ev, err := New(email, hash, in.Age, in.FirstName, in.LastName, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, s.internal("register: create user", err)
	}
	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	s.publish(ctx, ev)

	if !u.RequiresParentalConsent() {
		if err := s.sendVerification(ctx, u); err != nil {
			s.logger.Error("register: issue verification token failed", "user_id", u.ID, "error", err)
		}
	}
	return u, nil
}

// Login never distinguishes an unknown email from a wrong password.
func (s *service) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, s.internal("login: find user", err)
	}
	if !s.credentials.Compare(in.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !u.CanLogin() {
		return nil, ErrAccountNotReady
	}
	return s.startSession(ctx, u, in.DeviceInfo, in.IPAddress)
}

// startSession mints a token pair, ends every existing session of u and stores the new one.
func (s *service) startSession(ctx context.Context, u *User, deviceInfo, ip string) (*AuthResult, error) {
	claims := token.Claims{UserID: u.ID, Email: u.Email, Role: string(u.Role)}
	access, err := s.issuer.MintAccessToken(claims)
	if err != nil {
		return nil, s.internal("mint access token", err)
	}
	refresh, err := s.issuer.MintRefreshToken(claims)
	if err != nil {
		return nil, s.internal("mint refresh token", err)
	}

	if _, err := s.sessions.InvalidateAllForUser(ctx, u.ID); err != nil {
		return nil, s.internal("invalidate sessions", err)
	}

	now := s.now()
	sess, err := session.New(u.ID, access, refresh, deviceInfo, ip, now.Add(s.sessionTTL), now)
	if err != nil {
		return nil, s.internal("new session", err)
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, s.internal("create session", err)
	}

	s.logger.Info("user logged in", "user_id", u.ID, "session_id", sess.ID)
	s.publish(ctx, LoggedInEvent{baseEvent: newBase(u.ID, now), SessionID: sess.ID, IPAddress: ip})

	return s.authResult(ctx, sess, u), nil
}

func (s *service) authResult(ctx context.Context, sess *session.Session, u *User) *AuthResult {
	res := &AuthResult{
		AccessToken:    sess.AccessToken,
		RefreshToken:   sess.RefreshToken,
		SessionID:      sess.ID,
		SessionExpires: sess.ExpiresAt,
		User:           u,
	}
	if c, err := s.issuer.VerifyAccessToken(ctx, sess.AccessToken); err == nil {
		res.AccessExpiresAt = c.ExpiresAt
	}
	return res
}

// Logout ends the session owning accessToken, or every session of its user.
func (s *service) Logout(ctx context.Context, accessToken string, allDevices bool) error {
	sess, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return ErrSessionNotFound
		}
		return s.internal("logout: find session", err)
	}

	if allDevices {
		n, err := s.sessions.InvalidateAllForUser(ctx, sess.UserID)
		if err != nil {
			return s.internal("logout: invalidate sessions", err)
		}
		s.logger.Info("user logged out everywhere", "user_id", sess.UserID, "sessions", n)
	} else {
		if err := s.sessions.Invalidate(ctx, sess.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
			return s.internal("logout: invalidate session", err)
		}
		s.logger.Info("user logged out", "user_id", sess.UserID, "session_id", sess.ID)
	}

	if err := s.issuer.Revoke(ctx, accessToken); err != nil {
		s.logger.Warn("logout: revoke access token failed", "user_id", sess.UserID, "error", err)
	}
	return nil
}

// Refresh rotates the token pair in place. The session deadline is never extended.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.issuer.VerifyRefreshToken(ctx, refreshToken)
	if errors.Is(err, token.ErrRevocationUnavailable) {
		return nil, s.internal("refresh: check revocation", err)
	}
	if err != nil {
		return nil, ErrInvalidRefreshToken.WithCause(err)
	}

	sess, err := s.sessions.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, s.internal("refresh: find session", err)
	}
	if !sess.IsValid(s.now()) {
		return nil, ErrSessionInvalid
	}
	if sess.UserID != claims.UserID {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.users.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, s.internal("refresh: find user", err)
	}
	if !u.CanLogin() {
		return nil, ErrAccountNotReady
	}

	next := token.Claims{UserID: u.ID, Email: u.Email, Role: string(u.Role)}
	access, err := s.issuer.MintAccessToken(next)
	if err != nil {
		return nil, s.internal("refresh: mint access token", err)
	}
	refresh, err := s.issuer.MintRefreshToken(next)
	if err != nil {
		return nil, s.internal("refresh: mint refresh token", err)
	}

	rotated := sess.UpdateTokens(access, refresh)
	if err := s.sessions.UpdateTokens(ctx, rotated, refreshToken); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, s.internal("refresh: update session", err)
	}

	if err := s.issuer.Revoke(ctx, refreshToken); err != nil {
		s.logger.Warn("refresh: revoke old refresh token failed", "user_id", u.ID, "error", err)
	}
	return s.authResult(ctx, rotated, u), nil
}

func (s *service) SessionCount(ctx context.Context, userID string) (int, error) {
	n, err := s.sessions.CountActiveForUser(ctx, userID, s.now())
	if err != nil {
		return 0, s.internal("count sessions", err)
	}
	return n, nil
}
