package user

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

// Handler holds the dependencies for the user module's HTTP handlers.
type Handler struct {
	service   Service
	logger    *slog.Logger
	auth      func(huma.Context, func(huma.Context))
	adminOnly func(huma.Context, func(huma.Context))
}

// NewHandler creates a new handler for the user module.
// auth authenticates bearer tokens; adminOnly additionally requires the administrator role.
func NewHandler(service Service, logger *slog.Logger, auth, adminOnly func(huma.Context, func(huma.Context))) *Handler {
	return &Handler{
		service:   service,
		logger:    logger,
		auth:      auth,
		adminOnly: adminOnly,
	}
}

var bearer = []map[string][]string{{"bearer": {}}}

// RegisterRoutes sets up the routing for the user module.
func (h *Handler) RegisterRoutes(api huma.API) {
	authed := huma.Middlewares{h.auth}
	admin := huma.Middlewares{h.auth, h.adminOnly}

	// --- Authentication ---
	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/auth/register",
		Summary:       "Register a new user",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusCreated,
	}, h.RegisterHandler)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Log in with email and password",
		Tags:        []string{"auth"},
	}, h.LoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "refresh",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Rotate the token pair",
		Tags:        []string{"auth"},
	}, h.RefreshHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "End the current session, or every session",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   authed,
	}, h.LogoutHandler)

	huma.Register(api, huma.Operation{
		OperationID: "validate-token",
		Method:      http.MethodGet,
		Path:        "/auth/validate",
		Summary:     "Validate an access token against its session",
		Tags:        []string{"auth"},
		Security:    bearer,
	}, h.ValidateTokenHandler)

	// --- Email verification ---
	huma.Register(api, huma.Operation{
		OperationID: "verify-email",
		Method:      http.MethodPost,
		Path:        "/auth/email/verify",
		Summary:     "Verify an email address with a token",
		Tags:        []string{"verification"},
	}, h.VerifyEmailHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "resend-verification",
		Method:        http.MethodPost,
		Path:          "/auth/email/resend",
		Summary:       "Resend the verification email",
		Tags:          []string{"verification"},
		DefaultStatus: http.StatusAccepted,
	}, h.ResendVerificationHandler)

	// --- Parental consent ---
	huma.Register(api, huma.Operation{
		OperationID:   "request-parental-consent",
		Method:        http.MethodPost,
		Path:          "/auth/parental-consent",
		Summary:       "Ask a parent to approve a minor's account",
		Tags:          []string{"parental-consent"},
		DefaultStatus: http.StatusAccepted,
	}, h.RequestConsentHandler)

	huma.Register(api, huma.Operation{
		OperationID: "approve-parental-consent",
		Method:      http.MethodPost,
		Path:        "/auth/parental-consent/approve",
		Summary:     "Approve a minor's account",
		Tags:        []string{"parental-consent"},
	}, h.ApproveConsentHandler)

	// --- Password ---
	huma.Register(api, huma.Operation{
		OperationID:   "forgot-password",
		Method:        http.MethodPost,
		Path:          "/auth/password/forgot",
		Summary:       "Initiate password reset",
		Tags:          []string{"password"},
		DefaultStatus: http.StatusAccepted,
	}, h.ForgotPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "reset-password",
		Method:        http.MethodPost,
		Path:          "/auth/password/reset",
		Summary:       "Reset password with a token",
		Tags:          []string{"password"},
		DefaultStatus: http.StatusNoContent,
	}, h.ResetPasswordHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "change-password",
		Method:        http.MethodPost,
		Path:          "/users/me/password",
		Summary:       "Change the current user's password",
		Tags:          []string{"password"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   authed,
	}, h.ChangePasswordHandler)

	// --- Profile ---
	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/users/me",
		Summary:     "Get the current user's profile",
		Tags:        []string{"profile"},
		Security:    bearer,
		Middlewares: authed,
	}, h.GetProfileHandler)

	huma.Register(api, huma.Operation{
		OperationID: "update-profile",
		Method:      http.MethodPatch,
		Path:        "/users/me",
		Summary:     "Update the current user's profile",
		Tags:        []string{"profile"},
		Security:    bearer,
		Middlewares: authed,
	}, h.UpdateProfileHandler)

	// --- Role administration ---
	huma.Register(api, huma.Operation{
		OperationID:   "create-staff",
		Method:        http.MethodPost,
		Path:          "/admin/staff",
		Summary:       "Create a moderator or administrator",
		Tags:          []string{"admin"},
		DefaultStatus: http.StatusCreated,
		Security:      bearer,
		Middlewares:   admin,
	}, h.CreateStaffHandler)

	huma.Register(api, huma.Operation{
		OperationID: "list-staff",
		Method:      http.MethodGet,
		Path:        "/admin/staff",
		Summary:     "List moderators or administrators",
		Tags:        []string{"admin"},
		Security:    bearer,
		Middlewares: admin,
	}, h.ListStaffHandler)

	huma.Register(api, huma.Operation{
		OperationID: "get-staff",
		Method:      http.MethodGet,
		Path:        "/admin/staff/{id}",
		Summary:     "Get a staff user",
		Tags:        []string{"admin"},
		Security:    bearer,
		Middlewares: admin,
	}, h.GetStaffHandler)

	huma.Register(api, huma.Operation{
		OperationID: "update-staff",
		Method:      http.MethodPatch,
		Path:        "/admin/staff/{id}",
		Summary:     "Update a staff user",
		Tags:        []string{"admin"},
		Security:    bearer,
		Middlewares: admin,
	}, h.UpdateStaffHandler)

	huma.Register(api, huma.Operation{
		OperationID:   "deactivate-staff",
		Method:        http.MethodDelete,
		Path:          "/admin/staff/{id}",
		Summary:       "Deactivate a staff user",
		Tags:          []string{"admin"},
		DefaultStatus: http.StatusNoContent,
		Security:      bearer,
		Middlewares:   admin,
	}, h.DeactivateStaffHandler)

	// --- OAuth ---
	huma.Register(api, huma.Operation{
		OperationID: "oauth-login",
		Method:      http.MethodGet,
		Path:        "/auth/oauth/{provider}",
		Summary:     "Initiate OAuth login",
		Tags:        []string{"oauth"},
	}, h.OAuthLoginHandler)

	huma.Register(api, huma.Operation{
		OperationID: "oauth-callback",
		Method:      http.MethodGet,
		Path:        "/auth/oauth/{provider}/callback",
		Summary:     "Handle OAuth callback",
		Tags:        []string{"oauth"},
	}, h.OAuthCallbackHandler)
}

// UserBody is the public representation of a user.
type UserBody struct {
	ID                      string    `json:"id"`
	Email                   string    `json:"email"`
	FirstName               string    `json:"firstName,omitempty"`
	LastName                string    `json:"lastName,omitempty"`
	Age                     int       `json:"age"`
	Role                    Role      `json:"role"`
	Status                  Status    `json:"status"`
	Verified                bool      `json:"verified"`
	RequiresParentalConsent bool      `json:"requiresParentalConsent"`
	CreatedAt               time.Time `json:"createdAt"`
}

func toUserBody(u *User) UserBody {
	return UserBody{
		ID:                      u.ID,
		Email:                   u.Email,
		FirstName:               u.FirstName,
		LastName:                u.LastName,
		Age:                     u.Age,
		Role:                    u.Role,
		Status:                  u.Status,
		Verified:                u.Verified,
		RequiresParentalConsent: u.NeedsParentalConsent(),
		CreatedAt:               u.CreatedAt,
	}
}

// UserResponse wraps a single user.
type UserResponse struct {
	Body UserBody
}

func toUserResponse(u *User) *UserResponse {
	return &UserResponse{Body: toUserBody(u)}
}
