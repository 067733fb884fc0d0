package user

import (
	"context"
	"time"

	"github.com/delordemm1/go-identity-core/internal/events"
	"github.com/delordemm1/go-identity-core/internal/token"
)

// CredentialHasher hashes and checks passwords. Implemented by credential.Bcrypt.
type CredentialHasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, hash string) bool
	GenerateResetToken() (string, error)
	ValidateStrength(plaintext string) bool
}

// TokenIssuer mints and verifies the signed access/refresh pair. Implemented by token.Issuer.
type TokenIssuer interface {
	MintAccessToken(c token.Claims) (string, error)
	MintRefreshToken(c token.Claims) (string, error)
	VerifyAccessToken(ctx context.Context, s string) (*token.Claims, error)
	VerifyRefreshToken(ctx context.Context, s string) (*token.Claims, error)
	// Revoke is a best-effort hint; session invalidation is authoritative.
	Revoke(ctx context.Context, s string) error
}

// Notifier sends account emails. Implemented by notification.Mailer.
type Notifier interface {
	SendWelcome(ctx context.Context, to, firstName string) error
	SendVerification(ctx context.Context, to, firstName, token string) error
	SendPasswordReset(ctx context.Context, to, firstName, token string) error
	SendParentalConsent(ctx context.Context, parentEmail, parentName, childName, token string) error
}

// EventPublisher is the subset of events.Publisher the workflows use.
type EventPublisher interface {
	Publish(ctx context.Context, e events.Event) error
	PublishBatch(ctx context.Context, evs []events.Event) error
}

// RateLimiter admits at most one call per key per window. Implemented by cache.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}
