package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/delordemm1/go-identity-core/internal/contextx"
	"github.com/delordemm1/go-identity-core/internal/httpx"
	"github.com/delordemm1/go-identity-core/internal/modules/user"
)

// TokenValidator decides whether an access token may be used. Implemented by user.Service.
type TokenValidator interface {
	ValidateToken(ctx context.Context, accessToken string) (*user.TokenValidation, error)
}

// ClientMetadata records the caller's IP address and user agent for session bookkeeping.
// It expects chi's RealIP middleware to have normalized the remote address.
func ClientMetadata(ctx huma.Context, next func(huma.Context)) {
	ip := ctx.RemoteAddr()
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	ctx = huma.WithValue(ctx, contextx.ClientIPKey, ip)
	ctx = huma.WithValue(ctx, contextx.UserAgentKey, ctx.Header("User-Agent"))
	next(ctx)
}

// BearerAuth validates the bearer token against the session store and injects the
// caller's identity into the request context.
// On failure it writes an RFC 9457 problem+json response with code ErrUnauthorized.
func BearerAuth(validator TokenValidator, logger *slog.Logger) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		tokenString, found := strings.CutPrefix(ctx.Header("Authorization"), "Bearer ")
		tokenString = strings.TrimSpace(tokenString)
		if !found || tokenString == "" {
			writeProblem(ctx, httpx.NewProblem(ctx.Context(), http.StatusUnauthorized, "ErrUnauthorized", "missing or malformed bearer token"))
			return
		}

		v, err := validator.ValidateToken(ctx.Context(), tokenString)
		if err != nil {
			logger.Error("token validation failed", "error", err)
			writeProblem(ctx, httpx.InternalProblem(ctx.Context(), ""))
			return
		}
		if !v.Valid {
			logger.Warn("rejected bearer token", "reason", v.Reason)
			writeProblem(ctx, httpx.NewProblem(ctx.Context(), http.StatusUnauthorized, "ErrUnauthorized", v.Reason))
			return
		}

		ctx = huma.WithValue(ctx, contextx.UserIDKey, v.UserID)
		ctx = huma.WithValue(ctx, contextx.SessionIDKey, v.SessionID)
		ctx = huma.WithValue(ctx, contextx.RoleKey, string(v.Role))
		ctx = huma.WithValue(ctx, contextx.AccessTokenKey, tokenString)
		next(ctx)
	}
}

// RequireRole admits only callers whose role is one of roles. It must run after BearerAuth.
func RequireRole(roles ...user.Role) func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		role := user.Role(contextx.String(ctx.Context(), contextx.RoleKey))
		if role == "" {
			writeProblem(ctx, httpx.NewProblem(ctx.Context(), http.StatusUnauthorized, "ErrUnauthorized", ""))
			return
		}
		if !slices.Contains(roles, role) {
			writeProblem(ctx, httpx.NewProblem(ctx.Context(), http.StatusForbidden, "ErrForbidden", "insufficient role"))
			return
		}
		next(ctx)
	}
}

func writeProblem(ctx huma.Context, p *httpx.Problem) {
	ctx.SetHeader("Content-Type", "application/problem+json")
	ctx.SetStatus(p.GetStatus())
	_ = json.NewEncoder(ctx.BodyWriter()).Encode(p)
}
