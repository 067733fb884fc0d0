package user

import (
	"context"

	"github.com/delordemm1/go-identity-core/internal/httpx"
	"github.com/delordemm1/go-identity-core/internal/validation"
)

type CreateStaffRequest struct {
	Body struct {
		Role      Role   `json:"role" validate:"required,oneof=moderator administrator"`
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8,max=72"`
		Age       int    `json:"age" validate:"gte=1,lte=120"`
		FirstName string `json:"firstName,omitempty" validate:"max=100"`
		LastName  string `json:"lastName,omitempty" validate:"max=100"`
	}
}

type ListStaffRequest struct {
	Role   string `query:"role" required:"true" enum:"moderator,administrator"`
	Status string `query:"status" enum:"pending_verification,active,suspended,deactivated"`
	Page   int    `query:"page" default:"1" minimum:"1"`
	Size   int    `query:"size" default:"20" minimum:"1" maximum:"100"`
}

type StaffListResponse struct {
	Body struct {
		Items []UserBody `json:"items"`
		Total int        `json:"total"`
		Page  int        `json:"page"`
		Size  int        `json:"size"`
	}
}

type GetStaffRequest struct {
	ID   string `path:"id" format:"uuid"`
	Role string `query:"role" enum:"moderator,administrator" doc:"When set, the user must hold this role"`
}

type StaffIDRequest struct {
	ID   string `path:"id" format:"uuid"`
	Role string `query:"role" required:"true" enum:"moderator,administrator"`
}

type UpdateStaffRequest struct {
	ID   string `path:"id" format:"uuid"`
	Role string `query:"role" required:"true" enum:"moderator,administrator"`
	Body struct {
		Email           *string `json:"email,omitempty" validate:"omitempty,email"`
		Password        *string `json:"password,omitempty" validate:"omitempty,min=8,max=72"`
		ConfirmPassword *string `json:"confirmPassword,omitempty"`
		Status          *Status `json:"status,omitempty" validate:"omitempty,oneof=active suspended"`
		FirstName       *string `json:"firstName,omitempty" validate:"omitempty,max=100"`
		LastName        *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	}
}

func (h *Handler) CreateStaffHandler(ctx context.Context, input *CreateStaffRequest) (*UserResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	u, err := h.service.CreateStaff(ctx, CreateStaffInput{
		Role:      input.Body.Role,
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

func (h *Handler) ListStaffHandler(ctx context.Context, input *ListStaffRequest) (*StaffListResponse, error) {
	var status *Status
	if input.Status != "" {
		st := Status(input.Status)
		status = &st
	}
	page, err := h.service.ListStaff(ctx, Role(input.Role), status, Page{Number: input.Page, Size: input.Size})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}

	resp := &StaffListResponse{}
	resp.Body.Items = make([]UserBody, 0, len(page.Items))
	for _, u := range page.Items {
		resp.Body.Items = append(resp.Body.Items, toUserBody(u))
	}
	resp.Body.Total = page.Total
	resp.Body.Page = page.Page.Number
	resp.Body.Size = page.Page.Size
	return resp, nil
}

func (h *Handler) GetStaffHandler(ctx context.Context, input *GetStaffRequest) (*UserResponse, error) {
	u, err := h.service.GetStaff(ctx, input.ID)
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	if input.Role != "" && u.Role != Role(input.Role) {
		return nil, httpx.ToProblem(ctx, ErrWrongRole)
	}
	return toUserResponse(u), nil
}

func (h *Handler) UpdateStaffHandler(ctx context.Context, input *UpdateStaffRequest) (*UserResponse, error) {
	if verr := validation.ValidateStruct(&input.Body); verr != nil {
		return nil, httpx.ToProblem(ctx, verr)
	}
	u, err := h.service.UpdateStaff(ctx, input.ID, Role(input.Role), UpdateStaffInput{
		Email:           input.Body.Email,
		Password:        input.Body.Password,
		ConfirmPassword: input.Body.ConfirmPassword,
		Status:          input.Body.Status,
		FirstName:       input.Body.FirstName,
		LastName:        input.Body.LastName,
	})
	if err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return toUserResponse(u), nil
}

func (h *Handler) DeactivateStaffHandler(ctx context.Context, input *StaffIDRequest) (*struct{}, error) {
	if err := h.service.DeactivateStaff(ctx, input.ID, Role(input.Role)); err != nil {
		return nil, httpx.ToProblem(ctx, err)
	}
	return nil, nil
}
