package user

import (
	"context"
	"errors"
	"time"

	"github.com/delordemm1/go-identity-core/internal/session"
	"github.com/delordemm1/go-identity-core/internal/token"
)

const (
	ReasonInvalidToken     = "Invalid token format or signature"
	ReasonSessionNotFound  = "Session not found"
	ReasonSessionNotActive = "Session expired or inactive"
)

// TokenValidation is the authorization decision for a presented access token.
type TokenValidation struct {
	Valid     bool
	Reason    string
	UserID    string
	Email     string
	Role      Role
	SessionID string
	// ExpiresAt is the session deadline.
	ExpiresAt time.Time
}

// ValidateToken checks the signature first, then asks the session store, which is the
// authority of record: a well-signed token whose session was ended is rejected.
// Only infrastructure failures, including an unreachable revocation store, are returned as errors.
func (s *service) ValidateToken(ctx context.Context, accessToken string) (*TokenValidation, error) {
	claims, err := s.issuer.VerifyAccessToken(ctx, accessToken)
	if errors.Is(err, token.ErrRevocationUnavailable) {
		return nil, s.internal("validate token: check revocation", err)
	}
	if err != nil {
		return &TokenValidation{Reason: ReasonInvalidToken}, nil
	}

	sess, err := s.sessions.FindByAccessToken(ctx, accessToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return &TokenValidation{Reason: ReasonSessionNotFound}, nil
		}
		return nil, s.internal("validate token: find session", err)
	}
	if !sess.IsValid(s.now()) || sess.UserID != claims.UserID {
		return &TokenValidation{Reason: ReasonSessionNotActive}, nil
	}

	return &TokenValidation{
		Valid:     true,
		UserID:    claims.UserID,
		Email:     claims.Email,
		Role:      Role(claims.Role),
		SessionID: sess.ID,
		ExpiresAt: sess.ExpiresAt,
	}, nil
}
