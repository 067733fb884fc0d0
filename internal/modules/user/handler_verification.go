package user

import (
	"context"

	"github.com/delordemm1/go-identity-core/internal/httpx"
	"github.com/delordemm1/go-identity-core/internal/validation"
)

type VerifyEmailRequest struct {
	Body struct {
		Token string `json:"token" validate:"required"`
	}
}

type ResendVerificationRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

// VerifyEmailHandler consumes a verification token.
func (h *Handler) VerifyEmailHandler(ctx context.Context, input *VerifyEmailRequest) (*UserResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	u, err := h.service.VerifyEmail(ctx, input.Body.Token)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toUserResponse(u), nil
}

// ResendVerificationHandler answers 202 whether or not the email is known.
func (h *Handler) ResendVerificationHandler(ctx context.Context, input *ResendVerificationRequest) (*struct{}, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	if err := h.service.ResendEmailVerification(ctx, input.Body.Email); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return nil, nil
}
