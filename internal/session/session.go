// Package session models a login session: a server-side record binding an
// access/refresh token pair to a user, a device and a validity window.
// The session store is the authority of record for revocation.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session is a bound credential-pair grant.
type Session struct {
	ID           string
	UserID       string
	AccessToken  string
	RefreshToken string
	DeviceInfo   string
	IPAddress    string
	ExpiresAt    time.Time
	Active       bool
	CreatedAt    time.Time
}

// New creates an active session.
func New(userID, accessToken, refreshToken, deviceInfo, ip string, expiresAt, now time.Time) (*Session, error) {
	if userID == "" || accessToken == "" || refreshToken == "" {
		return nil, errors.New("session: user id and both tokens are required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	return &Session{
		ID:           id.String(),
		UserID:       userID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		DeviceInfo:   deviceInfo,
		IPAddress:    ip,
		ExpiresAt:    expiresAt,
		Active:       true,
		CreatedAt:    now,
	}, nil
}

// IsValid reports whether the session is active and not past its deadline.
func (s *Session) IsValid(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}

// Invalidate deactivates the session permanently.
func (s *Session) Invalidate() {
	s.Active = false
}

// UpdateTokens returns a copy carrying the new token pair.
// Identity, metadata and the absolute deadline are unchanged.
func (s *Session) UpdateTokens(accessToken, refreshToken string) *Session {
	cp := *s
	cp.AccessToken = accessToken
	cp.RefreshToken = refreshToken
	return &cp
}
