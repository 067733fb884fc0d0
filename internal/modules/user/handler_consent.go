package user

import (
	"context"

	"github.com/delordemm1/go-identity-core/internal/httpx"
	"github.com/delordemm1/go-identity-core/internal/validation"
)

type RequestConsentRequest struct {
	Body struct {
		UserID       string `json:"userId" validate:"required,uuid"`
		ParentEmail  string `json:"parentEmail" validate:"required,email"`
		ParentName   string `json:"parentName" validate:"required,max=200"`
		Relationship string `json:"relationship,omitempty" validate:"max=50"`
	}
}

type ApproveConsentRequest struct {
	Body struct {
		Token string `json:"token" validate:"required"`
	}
}

func (h *Handler) RequestConsentHandler(ctx context.Context, input *RequestConsentRequest) (*struct{}, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	err := h.service.RequestParentalConsent(ctx, ConsentRequestInput{
		UserID:       input.Body.UserID,
		ParentEmail:  input.Body.ParentEmail,
		ParentName:   input.Body.ParentName,
		Relationship: input.Body.Relationship,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return nil, nil
}

// ApproveConsentHandler returns the minor's account, now verified.
func (h *Handler) ApproveConsentHandler(ctx context.Context, input *ApproveConsentRequest) (*UserResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	u, err := h.service.ApproveParentalConsent(ctx, input.Body.Token)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toUserResponse(u), nil
}
