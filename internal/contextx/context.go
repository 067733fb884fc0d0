package contextx

import "context"

// Key is a private type to avoid collisions in request context keys.
type Key string

// UserIDKey is the context key used to store the authenticated user's ID (string).
const UserIDKey Key = "userID"

// SessionIDKey is the context key used to store the current session ID (string).
const SessionIDKey Key = "sessionID"

// RoleKey stores the authenticated user's role (string).
const RoleKey Key = "role"

// AccessTokenKey stores the raw bearer token of the current request.
const AccessTokenKey Key = "accessToken"

// ClientIPKey and UserAgentKey carry request metadata recorded on new sessions.
const (
	ClientIPKey  Key = "clientIP"
	UserAgentKey Key = "userAgent"
)

// String returns the string stored under key, or "" when absent.
func String(ctx context.Context, key Key) string {
	v, _ := ctx.Value(key).(string)
	return v
}
