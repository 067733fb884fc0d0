package user

import (
	"context"

	"github.com/delordemm1/go-identity-core/internal/contextx"
	"github.com/delordemm1/go-identity-core/internal/httpx"
	"github.com/delordemm1/go-identity-core/internal/validation"
)

type GetProfileRequest struct{}

// UpdateProfileRequest defines the fields that can be updated on a user's profile.
type UpdateProfileRequest struct {
	Body struct {
		FirstName *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
		LastName  *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	}
}

func (h *Handler) GetProfileHandler(ctx context.Context, _ *GetProfileRequest) (*UserResponse, error) {
	u, err := h.service.GetProfile(ctx, contextx.String(ctx, contextx.UserIDKey))
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toUserResponse(u), nil
}

func (h *Handler) UpdateProfileHandler(ctx context.Context, input *UpdateProfileRequest) (*UserResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	u, err := h.service.UpdateProfile(ctx, contextx.String(ctx, contextx.UserIDKey), UpdateProfileInput{
		FirstName: input.Body.FirstName,
		LastName:  input.Body.LastName,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toUserResponse(u), nil
}
