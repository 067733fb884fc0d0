package user

import (
	"context"
	"errors"
)

type CreateStaffInput struct {
	Role      Role
	Email     string
	Password  string
	Age       int
	FirstName string
	LastName  string
}

// UpdateStaffInput holds optional changes. Password changes need a matching ConfirmPassword.
type UpdateStaffInput struct {
	Email           *string
	Password        *string
	ConfirmPassword *string
	Status          *Status
	FirstName       *string
	LastName        *string
}

type StaffPage struct {
	Items []*User
	Total int
	Page  Page
}

func (s *service) CreateStaff(ctx context.Context, in CreateStaffInput) (*User, error) {
	if !in.Role.IsStaff() {
		return nil, invalid("role", "must be one of: moderator, administrator")
	}
	if !s.credentials.ValidateStrength(in.Password) {
		return nil, ErrWeakPassword
	}
	if err := s.ensureEmailFree(ctx, in.Email); err != nil {
		return nil, err
	}

	hash, err := s.credentials.Hash(in.Password)
	if err != nil {
		return nil, s.internal("create staff: hash password", err)
	}
	u, ev, err := NewStaff(in.Role, in.Email, hash, in.Age, in.FirstName, in.LastName, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, s.internal("create staff", err)
	}

	s.logger.Info("staff user created", "user_id", u.ID, "role", u.Role)
	s.publish(ctx, ev)
	return u, nil
}

func (s *service) UpdateStaff(ctx context.Context, id string, role Role, in UpdateStaffInput) (*User, error) {
	u, err := s.findStaff(ctx, id, role)
	if err != nil {
		return nil, err
	}
	if u.Status == StatusDeactivated {
		return nil, ErrInvalidState.WithDetail("account is deactivated")
	}
	now := s.now()

	if in.Email != nil && NormalizeEmail(*in.Email) != u.Email {
		if err := s.ensureEmailFree(ctx, *in.Email); err != nil {
			return nil, err
		}
		if err := u.ChangeEmail(*in.Email, now); err != nil {
			return nil, err
		}
	}

	passwordChanged := false
	if in.Password != nil {
		if in.ConfirmPassword == nil || *in.ConfirmPassword != *in.Password {
			return nil, ErrPasswordMismatch
		}
		if !s.credentials.ValidateStrength(*in.Password) {
			return nil, ErrWeakPassword
		}
		hash, err := s.credentials.Hash(*in.Password)
		if err != nil {
			return nil, s.internal("update staff: hash password", err)
		}
		if err := u.UpdatePassword(hash, now); err != nil {
			return nil, err
		}
		passwordChanged = true
	}

	suspended := false
	if in.Status != nil && *in.Status != u.Status {
		switch *in.Status {
		case StatusActive:
			err = u.Activate(now)
		case StatusSuspended:
			if err = s.ensureNotLastAdministrator(ctx, u); err == nil {
				err = u.Suspend(now)
				suspended = true
			}
		default:
			err = invalid("status", "must be one of: active, suspended")
		}
		if err != nil {
			return nil, err
		}
	}

	if in.FirstName != nil || in.LastName != nil {
		first, last := u.FirstName, u.LastName
		if in.FirstName != nil {
			first = *in.FirstName
		}
		if in.LastName != nil {
			last = *in.LastName
		}
		u.Rename(first, last, now)
	}

	if err := s.users.Update(ctx, u); err != nil {
		return nil, s.internal("update staff", err)
	}
	if passwordChanged || suspended {
		if _, err := s.sessions.InvalidateAllForUser(ctx, u.ID); err != nil {
			return nil, s.internal("update staff: invalidate sessions", err)
		}
	}
	if passwordChanged {
		s.publish(ctx, PasswordChangedEvent{baseEvent: newBase(u.ID, now)})
	}
	s.logger.Info("staff user updated", "user_id", u.ID, "status", u.Status)
	return u, nil
}

// DeactivateStaff is terminal. The last active administrator can never be deactivated.
func (s *service) DeactivateStaff(ctx context.Context, id string, role Role) error {
	u, err := s.findStaff(ctx, id, role)
	if err != nil {
		return err
	}
	if u.Status == StatusDeactivated {
		return ErrAlreadyDeactivated
	}
	if err := s.ensureNotLastAdministrator(ctx, u); err != nil {
		return err
	}

	now := s.now()
	if err := u.Deactivate(now); err != nil {
		return err
	}
	if err := s.users.Update(ctx, u); err != nil {
		return s.internal("deactivate staff", err)
	}
	if _, err := s.sessions.InvalidateAllForUser(ctx, u.ID); err != nil {
		return s.internal("deactivate staff: invalidate sessions", err)
	}

	s.logger.Info("staff user deactivated", "user_id", u.ID, "role", u.Role)
	s.publish(ctx, DeactivatedEvent{baseEvent: newBase(u.ID, now), Role: u.Role})
	return nil
}

func (s *service) ListStaff(ctx context.Context, role Role, status *Status, page Page) (*StaffPage, error) {
	if !role.IsStaff() {
		return nil, invalid("role", "must be one of: moderator, administrator")
	}
	if status != nil && !status.Valid() {
		return nil, invalid("status", "is invalid")
	}
	page = page.normalize()

	total, err := s.users.CountByRole(ctx, role, status)
	if err != nil {
		return nil, s.internal("list staff: count", err)
	}
	items, err := s.users.ListByRole(ctx, role, page, status)
	if err != nil {
		return nil, s.internal("list staff", err)
	}
	return &StaffPage{Items: items, Total: total, Page: page}, nil
}

// GetStaff hides non-staff users behind ErrNotFound.
func (s *service) GetStaff(ctx context.Context, id string) (*User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.internal("get staff", err)
	}
	if !u.Role.IsStaff() {
		return nil, ErrNotFound
	}
	return u, nil
}

// findStaff loads a user and checks it holds the expected staff role.
func (s *service) findStaff(ctx context.Context, id string, role Role) (*User, error) {
	if !role.IsStaff() {
		return nil, invalid("role", "must be one of: moderator, administrator")
	}
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, s.internal("find staff", err)
	}
	if u.Role != role {
		return nil, ErrWrongRole
	}
	return u, nil
}

func (s *service) ensureNotLastAdministrator(ctx context.Context, u *User) error {
	if u.Role != RoleAdministrator {
		return nil
	}
	active := StatusActive
	n, err := s.users.CountByRole(ctx, RoleAdministrator, &active)
	if err != nil {
		return s.internal("count administrators", err)
	}
	if n <= 1 {
		return ErrLastAdministrator
	}
	return nil
}

func (s *service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return ErrEmailExists
	}
	if !errors.Is(err, ErrNotFound) {
		return s.internal("find user by email", err)
	}
	return nil
}
