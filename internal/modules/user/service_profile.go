package user

import (
	"context"
)

// UpdateProfileInput holds optional profile changes. Nil fields are left unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

func (s *service) GetProfile(ctx context.Context, userID string) (*User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.internal("get profile", err)
	}
	return u, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, s.internal("update profile: find user", err)
	}
	if in.FirstName == nil && in.LastName == nil {
		return u, nil
	}

	first, last := u.FirstName, u.LastName
	if in.FirstName != nil {
		first = *in.FirstName
	}
	if in.LastName != nil {
		last = *in.LastName
	}
	u.Rename(first, last, s.now())

	if err := s.users.Update(ctx, u); err != nil {
		return nil, s.internal("update profile", err)
	}
	s.logger.Info("profile updated", "user_id", u.ID)
	return u, nil
}
