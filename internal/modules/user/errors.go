package user

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/delordemm1/go-identity-core/internal/validation"
)

// Kind is the coarse class of a domain failure. Callers branch on Kind, clients see Code.
type Kind string

const (
	KindValidation         Kind = "ValidationError"
	KindNotFound           Kind = "NotFound"
	KindConflict           Kind = "Conflict"
	KindInvalidCredentials Kind = "InvalidCredentials"
	KindExpired            Kind = "Expired"
	KindInvariantViolation Kind = "InvariantViolation"
	KindUnauthorized       Kind = "Unauthorized"
	KindRateLimited        Kind = "RateLimited"
	KindInternal           Kind = "Internal"
)

// DomainError is a structured, self-describing domain error used across the user module.
// It carries RFC 7807 metadata so httpx.ToProblem can render it without enumerating types.
type DomainError struct {
	// Code is a stable, machine-readable business code (e.g., "ErrLastAdministrator").
	Code string

	Kind Kind

	// HTTPStatus is the status suggested for this error.
	HTTPStatus int

	// Title is a short human summary; empty defaults to StatusText(HTTPStatus).
	Title string

	// Message is primarily for logs. When Detail is empty it is used as the public detail.
	Message string

	// Detail is a user-friendly, safe explanation for clients.
	Detail string

	TypeURI string

	// Context is an optional extension payload for clients (e.g., validation fields map).
	Context any

	cause error
}

func (e *DomainError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Message
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is compares by Code so copies made with WithCause still match their sentinel.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy wrapping err.
func (e *DomainError) WithCause(err error) *DomainError {
	if err == nil {
		return e
	}
	cp := *e
	cp.cause = err
	return &cp
}

// WithDetail returns a copy with a client-facing detail message.
func (e *DomainError) WithDetail(detail string) *DomainError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithContext returns a copy carrying an extension payload.
func (e *DomainError) WithContext(ctx any) *DomainError {
	cp := *e
	cp.Context = ctx
	return &cp
}

func (e *DomainError) ProblemCode() string { return e.Code }
func (e *DomainError) ProblemStatus() int {
	if e.HTTPStatus == 0 {
		return http.StatusInternalServerError
	}
	return e.HTTPStatus
}
func (e *DomainError) ProblemTitle() string { return e.Title }
func (e *DomainError) ProblemDetail() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}
func (e *DomainError) ProblemTypeURI() string { return e.TypeURI }
func (e *DomainError) ProblemContext() any    { return e.Context }

// KindOf returns the Kind of err. Unknown errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	var ve *validation.ValidationError
	if errors.As(err, &ve) {
		return KindValidation
	}
	return KindInternal
}

// invalid builds a field-scoped ErrValidation.
func invalid(field, message string) *DomainError {
	return ErrValidation.
		WithDetail(field+" "+message).
		WithContext(map[string]any{"fields": validation.FieldErrors{field: {message}}})
}

var (
	ErrValidation = &DomainError{
		Code:       "ErrValidation",
		Kind:       KindValidation,
		HTTPStatus: http.StatusBadRequest,
		Title:      "Validation error",
		Message:    "validation failed",
		TypeURI:    "urn:problem:validation-error",
	}

	ErrWeakPassword = &DomainError{
		Code:       "ErrWeakPassword",
		Kind:       KindValidation,
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "password must be 8 characters to 72 bytes long and contain upper case, lower case and a digit",
		TypeURI:    "urn:problem:user/err-weak-password",
	}

	ErrPasswordMismatch = &DomainError{
		Code:       "ErrPasswordMismatch",
		Kind:       KindValidation,
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "password confirmation does not match",
		TypeURI:    "urn:problem:user/err-password-mismatch",
	}

	// Resource & identity
	ErrNotFound = &DomainError{
		Code:       "ErrNotFound",
		Kind:       KindNotFound,
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "user not found",
		TypeURI:    "urn:problem:user/err-not-found",
	}

	ErrEmailExists = &DomainError{
		Code:       "ErrEmailExists",
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "a user with this email already exists",
		TypeURI:    "urn:problem:user/err-email-exists",
	}

	// Account state
	ErrInvalidState = &DomainError{
		Code:       "ErrInvalidState",
		Kind:       KindInvariantViolation,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "operation not allowed in the current account state",
		TypeURI:    "urn:problem:user/err-invalid-state",
	}

	ErrAlreadyVerified = &DomainError{
		Code:       "ErrAlreadyVerified",
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "email is already verified",
		TypeURI:    "urn:problem:user/err-already-verified",
	}

	ErrAlreadyDeactivated = &DomainError{
		Code:       "ErrAlreadyDeactivated",
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "user is already deactivated",
		TypeURI:    "urn:problem:user/err-already-deactivated",
	}

	ErrWrongRole = &DomainError{
		Code:       "ErrWrongRole",
		Kind:       KindInvariantViolation,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "user does not have the expected role",
		TypeURI:    "urn:problem:user/err-wrong-role",
	}

	ErrLastAdministrator = &DomainError{
		Code:       "ErrLastAdministrator",
		Kind:       KindInvariantViolation,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "the last active administrator cannot be removed",
		TypeURI:    "urn:problem:user/err-last-administrator",
	}

	ErrMinorPromotion = &DomainError{
		Code:       "ErrMinorPromotion",
		Kind:       KindInvariantViolation,
		HTTPStatus: http.StatusUnprocessableEntity,
		Title:      "Unprocessable Entity",
		Message:    "minors cannot hold an administrative role",
		TypeURI:    "urn:problem:user/err-minor-promotion",
	}

	// Auth & credentials
	ErrInvalidCredentials = &DomainError{
		Code:       "ErrInvalidCredentials",
		Kind:       KindInvalidCredentials,
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "invalid email or password",
		TypeURI:    "urn:problem:user/err-invalid-credentials",
	}

	ErrAccountNotReady = &DomainError{
		Code:       "ErrAccountNotReady",
		Kind:       KindUnauthorized,
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Message:    "account is not verified or not active",
		TypeURI:    "urn:problem:user/err-account-not-ready",
	}

	ErrUnauthorized = &DomainError{
		Code:       "ErrUnauthorized",
		Kind:       KindUnauthorized,
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "authentication required",
		TypeURI:    "urn:problem:user/err-unauthorized",
	}

	ErrForbidden = &DomainError{
		Code:       "ErrForbidden",
		Kind:       KindUnauthorized,
		HTTPStatus: http.StatusForbidden,
		Title:      "Forbidden",
		Message:    "insufficient role for this action",
		TypeURI:    "urn:problem:user/err-forbidden",
	}

	// Sessions
	ErrInvalidRefreshToken = &DomainError{
		Code:       "ErrInvalidRefreshToken",
		Kind:       KindUnauthorized,
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "refresh token is invalid",
		TypeURI:    "urn:problem:user/err-invalid-refresh-token",
	}

	ErrSessionNotFound = &DomainError{
		Code:       "ErrSessionNotFound",
		Kind:       KindNotFound,
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "session not found",
		TypeURI:    "urn:problem:user/err-session-not-found",
	}

	ErrSessionInvalid = &DomainError{
		Code:       "ErrSessionInvalid",
		Kind:       KindExpired,
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "session expired or inactive",
		TypeURI:    "urn:problem:user/err-session-invalid",
	}

	// Ephemeral tokens
	ErrTokenNotFound = &DomainError{
		Code:       "ErrTokenNotFound",
		Kind:       KindNotFound,
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "token not found",
		TypeURI:    "urn:problem:user/err-token-not-found",
	}

	ErrTokenExpired = &DomainError{
		Code:       "ErrTokenExpired",
		Kind:       KindExpired,
		HTTPStatus: http.StatusGone,
		Title:      "Gone",
		Message:    "token has expired",
		TypeURI:    "urn:problem:user/err-token-expired",
	}

	ErrTokenAlreadyUsed = &DomainError{
		Code:       "ErrTokenAlreadyUsed",
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "token has already been used",
		TypeURI:    "urn:problem:user/err-token-already-used",
	}

	ErrResendTooSoon = &DomainError{
		Code:       "ErrResendTooSoon",
		Kind:       KindRateLimited,
		HTTPStatus: http.StatusTooManyRequests,
		Title:      "Too Many Requests",
		Message:    "please wait before requesting another email",
		TypeURI:    "urn:problem:user/err-resend-too-soon",
	}

	// Parental consent
	ErrConsentNotRequired = &DomainError{
		Code:       "ErrConsentNotRequired",
		Kind:       KindInvariantViolation,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "user does not require parental consent",
		TypeURI:    "urn:problem:user/err-consent-not-required",
	}

	ErrConsentPending = &DomainError{
		Code:       "ErrConsentPending",
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "a parental consent request is already pending",
		TypeURI:    "urn:problem:user/err-consent-pending",
	}

	ErrConsentAlreadyApproved = &DomainError{
		Code:       "ErrConsentAlreadyApproved",
		Kind:       KindConflict,
		HTTPStatus: http.StatusConflict,
		Title:      "Conflict",
		Message:    "parental consent has already been approved",
		TypeURI:    "urn:problem:user/err-consent-already-approved",
	}

	// OAuth
	ErrUnsupportedOAuthProvider = &DomainError{
		Code:       "ErrUnsupportedOAuthProvider",
		Kind:       KindValidation,
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "unsupported oauth provider",
		TypeURI:    "urn:problem:user/err-unsupported-oauth-provider",
	}

	ErrOAuthStateInvalid = &DomainError{
		Code:       "ErrOAuthStateInvalid",
		Kind:       KindUnauthorized,
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "invalid oauth state",
		TypeURI:    "urn:problem:user/err-oauth-state-invalid",
	}

	ErrOAuthStateExpired = &DomainError{
		Code:       "ErrOAuthStateExpired",
		Kind:       KindExpired,
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "oauth state has expired",
		TypeURI:    "urn:problem:user/err-oauth-state-expired",
	}

	ErrOAuthExchangeFailed = &DomainError{
		Code:       "ErrOAuthExchangeFailed",
		Kind:       KindUnauthorized,
		HTTPStatus: http.StatusUnauthorized,
		Title:      "Unauthorized",
		Message:    "oauth authentication failed",
		TypeURI:    "urn:problem:user/err-oauth-exchange-failed",
	}

	ErrOAuthEmailMissing = &DomainError{
		Code:       "ErrOAuthEmailMissing",
		Kind:       KindUnauthorized,
		HTTPStatus: http.StatusBadRequest,
		Title:      "Bad Request",
		Message:    "verified email not provided by oauth provider",
		TypeURI:    "urn:problem:user/err-oauth-email-missing",
	}

	ErrOAuthAccountNotLinked = &DomainError{
		Code:       "ErrOAuthAccountNotLinked",
		Kind:       KindNotFound,
		HTTPStatus: http.StatusNotFound,
		Title:      "Not Found",
		Message:    "no account exists for this email; register first",
		TypeURI:    "urn:problem:user/err-oauth-account-not-linked",
	}

	ErrInternal = &DomainError{
		Code:       "ErrInternal",
		Kind:       KindInternal,
		HTTPStatus: http.StatusInternalServerError,
		Title:      "Internal Server Error",
		Message:    "internal server error",
		TypeURI:    "urn:problem:user/err-internal",
	}
)
