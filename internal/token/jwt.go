// Package token mints and verifies the signed access/refresh token pair.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	// ErrRevocationUnavailable means the denylist could not be read, so the token was neither accepted nor rejected.
	ErrRevocationUnavailable = errors.New("token revocation store unavailable")
)

const (
	typeAccess  = "access"
	typeRefresh = "refresh"
)

// Claims is the identity carried through signed tokens.
// Refresh tokens carry only UserID.
type Claims struct {
	UserID    string
	Email     string
	Role      string
	ExpiresAt time.Time
}

// jwtClaims is the wire representation of Claims.
type jwtClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Type  string `json:"typ"`
}

// Config holds signing secrets and lifetimes.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

// Issuer signs HS256 tokens. Access and refresh tokens use separate secrets.
type Issuer struct {
	cfg         Config
	revocations Revocations
}

// NewIssuer creates an Issuer. revocations may be nil, in which case Revoke is a no-op.
func NewIssuer(cfg Config, revocations Revocations) (*Issuer, error) {
	if len(cfg.AccessSecret) == 0 || len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token: access and refresh secrets are required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &Issuer{cfg: cfg, revocations: revocations}, nil
}

// MintAccessToken signs a short-lived token carrying the full identity.
func (i *Issuer) MintAccessToken(c Claims) (string, error) {
	return i.sign(c, typeAccess, i.cfg.AccessTTL, i.cfg.AccessSecret)
}

// MintRefreshToken signs a longer-lived token carrying only the user id.
func (i *Issuer) MintRefreshToken(c Claims) (string, error) {
	return i.sign(Claims{UserID: c.UserID}, typeRefresh, i.cfg.RefreshTTL, i.cfg.RefreshSecret)
}

// VerifyAccessToken checks signature, issuer, expiry, type and revocation of an access token.
func (i *Issuer) VerifyAccessToken(ctx context.Context, tokenString string) (*Claims, error) {
	return i.verify(ctx, tokenString, typeAccess, i.cfg.AccessSecret)
}

// VerifyRefreshToken checks signature, issuer, expiry, type and revocation of a refresh token.
func (i *Issuer) VerifyRefreshToken(ctx context.Context, tokenString string) (*Claims, error) {
	return i.verify(ctx, tokenString, typeRefresh, i.cfg.RefreshSecret)
}

// Revoke records the token on the denylist until its own expiry.
// It is a best-effort hint; session invalidation stays authoritative.
func (i *Issuer) Revoke(ctx context.Context, tokenString string) error {
	if i.revocations == nil {
		return nil
	}
	var claims jwtClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	ttl := claims.ExpiresAt.Time.Sub(i.cfg.Now())
	if ttl <= 0 {
		return nil
	}
	return i.revocations.Revoke(ctx, tokenString, ttl)
}

func (i *Issuer) sign(c Claims, typ string, ttl time.Duration, secret []byte) (string, error) {
	if c.UserID == "" {
		return "", errors.New("token: user id is required")
	}
	now := i.cfg.Now()
	claims := &jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.cfg.Issuer,
			Subject:   c.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: c.Email,
		Role:  c.Role,
		Type:  typ,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (i *Issuer) verify(ctx context.Context, tokenString, typ string, secret []byte) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.cfg.Now),
		jwt.WithExpirationRequired(),
	}
	if i.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.cfg.Issuer))
	}

	claims := &jwtClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Type != typ || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	if i.revocations != nil {
		revoked, err := i.revocations.IsRevoked(ctx, tokenString)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return &Claims{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
