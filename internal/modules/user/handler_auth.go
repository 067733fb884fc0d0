package user

import (
	"context"
	"strings"
	"time"

	"github.com/delordemm1/go-identity-core/internal/contextx"
	"github.com/delordemm1/go-identity-core/internal/httpx"
	"github.com/delordemm1/go-identity-core/internal/validation"
)

// --- DTOs ---

type RegisterRequest struct {
	Body struct {
		Email           string `json:"email" validate:"required,email"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
		Age             int    `json:"age" validate:"gte=1,lte=120"`
		FirstName       string `json:"firstName,omitempty" validate:"max=100"`
		LastName        string `json:"lastName,omitempty" validate:"max=100"`
	}
}

type LoginRequest struct {
	Body struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	UserAgent string `header:"User-Agent"`
}

// TokenPairBody is returned by login, refresh and OAuth callback.
type TokenPairBody struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	TokenType        string    `json:"tokenType"`
	ExpiresAt        time.Time `json:"expiresAt"`
	SessionExpiresAt time.Time `json:"sessionExpiresAt"`
	User             UserBody  `json:"user"`
}

type TokenPairResponse struct {
	Body TokenPairBody
}

func toTokenPairResponse(res *AuthResult) *TokenPairResponse {
	return &TokenPairResponse{Body: TokenPairBody{
		AccessToken:      res.AccessToken,
		RefreshToken:     res.RefreshToken,
		TokenType:        "Bearer",
		ExpiresAt:        res.AccessExpiresAt,
		SessionExpiresAt: res.SessionExpires,
		User:             toUserBody(res.User),
	}}
}

type RefreshRequest struct {
	Body struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}
}

type LogoutRequest struct {
	AllDevices bool `query:"all" doc:"End every session of the user"`
}

type ValidateTokenRequest struct {
	Authorization string `header:"Authorization"`
}

type ValidateTokenResponse struct {
	Body struct {
		Valid     bool       `json:"valid"`
		Reason    string     `json:"reason,omitempty"`
		UserID    string     `json:"userId,omitempty"`
		Email     string     `json:"email,omitempty"`
		Role      Role       `json:"role,omitempty"`
		ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	}
}

// --- Handlers ---

func (h *Handler) RegisterHandler(ctx context.Context, input *RegisterRequest) (*UserResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	u, err := h.service.Register(ctx, RegisterInput{
		Email:     input.Body.Email,
		Password:  input.Body.Password,
		Age:       input.Body.Age,
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toUserResponse(u), nil
}

func (h *Handler) LoginHandler(ctx context.Context, input *LoginRequest) (*TokenPairResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	res, err := h.service.Login(ctx, LoginInput{
		Email:      input.Body.Email,
		Password:   input.Body.Password,
		DeviceInfo: input.UserAgent,
		IPAddress:  contextx.String(ctx, contextx.ClientIPKey),
	})
	if err != nil {
		h.logger.Warn("login attempt failed", "error", err)
		return nil, httpx.ToProblem(ctx, err)
	}
	return toTokenPairResponse(res), nil
}

func (h *Handler) RefreshHandler(ctx context.Context, input *RefreshRequest) (*TokenPairResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	res, err := h.service.Refresh(ctx, input.Body.RefreshToken)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toTokenPairResponse(res), nil
}

func (h *Handler) LogoutHandler(ctx context.Context, input *LogoutRequest) (*struct{}, error) {
	accessToken := contextx.String(ctx, contextx.AccessTokenKey)
	if err := h.service.Logout(ctx, accessToken, input.AllDevices); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return nil, nil
}

// ValidateTokenHandler always answers 200; the body carries the decision.
func (h *Handler) ValidateTokenHandler(ctx context.Context, input *ValidateTokenRequest) (*ValidateTokenResponse, error) {
	resp := &ValidateTokenResponse{}
	tok, ok := strings.CutPrefix(input.Authorization, "Bearer ")
	if !ok || strings.TrimSpace(tok) == "" {
		resp.Body.Reason = ReasonInvalidToken
		return resp, nil
	}

	v, err := h.service.ValidateToken(ctx, strings.TrimSpace(tok))
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	resp.Body.Valid = v.Valid
	resp.Body.Reason = v.Reason
	if v.Valid {
		resp.Body.UserID = v.UserID
		resp.Body.Email = v.Email
		resp.Body.Role = v.Role
		resp.Body.ExpiresAt = &v.ExpiresAt
	}
	return resp, nil
}
