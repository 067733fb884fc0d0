package user

import (
	"context"

	"github.com/delordemm1/go-identity-core/internal/contextx"
	"github.com/delordemm1/go-identity-core/internal/httpx"
	"github.com/delordemm1/go-identity-core/internal/validation"
)

type ForgotPasswordRequest struct {
	Body struct {
		Email string `json:"email" validate:"required,email"`
	}
}

type ResetPasswordRequest struct {
	Body struct {
		Token           string `json:"token" validate:"required"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required"`
	}
}

type ChangePasswordRequest struct {
	Body struct {
		CurrentPassword string `json:"currentPassword" validate:"required"`
		Password        string `json:"password" validate:"required,min=8,max=72"`
		ConfirmPassword string `json:"confirmPassword" validate:"required"`
	}
}

// ForgotPasswordHandler answers 202 in every case so emails cannot be probed.
func (h *Handler) ForgotPasswordHandler(ctx context.Context, input *ForgotPasswordRequest) (*struct{}, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	if err := h.service.RequestPasswordReset(ctx, input.Body.Email); err != nil {
		h.logger.Error("failed to initiate password reset", "error", err)
	}
	return nil, nil
}

func (h *Handler) ResetPasswordHandler(ctx context.Context, input *ResetPasswordRequest) (*struct{}, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	if err := h.service.FinalizePasswordReset(ctx, input.Body.Token, input.Body.Password, input.Body.ConfirmPassword); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return nil, nil
}

func (h *Handler) ChangePasswordHandler(ctx context.Context, input *ChangePasswordRequest) (*struct{}, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	userID := contextx.String(ctx, contextx.UserIDKey)
	err := h.service.ChangePassword(ctx, userID, input.Body.CurrentPassword, input.Body.Password, input.Body.ConfirmPassword)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return nil, nil
}
