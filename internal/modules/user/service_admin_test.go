package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCreateStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mod, err := env.svc.CreateStaff(ctx, CreateStaffInput{
		Role: RoleModerator, Email: "Mod@example.com", Password: testPassword, Age: 25, FirstName: "Mo",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, mod.Role)
	assert.True(t, mod.CanLogin())
	assert.Contains(t, env.events.published(), "user.staff_created")
	env.login(t, "mod@example.com")

	_, err = env.svc.CreateStaff(ctx, CreateStaffInput{Role: RoleAdministrator, Email: "kid@example.com", Password: testPassword, Age: 16})
	assert.ErrorIs(t, err, ErrMinorPromotion)

	_, err = env.svc.CreateStaff(ctx, CreateStaffInput{Role: RoleUser, Email: "u@example.com", Password: testPassword, Age: 30})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.CreateStaff(ctx, CreateStaffInput{Role: RoleModerator, Email: "mod@example.com", Password: testPassword, Age: 30})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestDeactivateLastAdministrator(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	first := env.seedStaff(t, RoleAdministrator, "first@example.com")
	second := env.seedStaff(t, RoleAdministrator, "second@example.com")

	require.NoError(t, env.svc.DeactivateStaff(ctx, first.ID, RoleAdministrator))

	active := StatusActive
	n, err := env.users.CountByRole(ctx, RoleAdministrator, &active)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = env.svc.DeactivateStaff(ctx, second.ID, RoleAdministrator)
	assert.ErrorIs(t, err, ErrLastAdministrator)
	assert.Equal(t, KindInvariantViolation, KindOf(err))
	assert.Equal(t, StatusActive, env.users.get(t, second.ID).Status)

	assert.ErrorIs(t, env.svc.DeactivateStaff(ctx, first.ID, RoleAdministrator), ErrAlreadyDeactivated)
}

func TestDeactivateStaffEndsSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mod := env.seedStaff(t, RoleModerator, "mod@example.com")
	res := env.login(t, "mod@example.com")

	assert.ErrorIs(t, env.svc.DeactivateStaff(ctx, mod.ID, RoleAdministrator), ErrWrongRole)
	require.NoError(t, env.svc.DeactivateStaff(ctx, mod.ID, RoleModerator))

	v, err := env.svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.False(t, v.Valid)
	assert.Contains(t, env.events.published(), "user.deactivated")

	_, err = env.svc.Login(ctx, LoginInput{Email: "mod@example.com", Password: testPassword})
	assert.ErrorIs(t, err, ErrAccountNotReady)
}

func TestUpdateStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedStaff(t, RoleAdministrator, "root@example.com")
	mod := env.seedStaff(t, RoleModerator, "mod@example.com")
	env.seedStaff(t, RoleModerator, "other@example.com")

	updated, err := env.svc.UpdateStaff(ctx, mod.ID, RoleModerator, UpdateStaffInput{
		Email:     ptr("New@example.com"),
		FirstName: ptr(" Morgan "),
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "Morgan", updated.FirstName)

	_, err = env.svc.UpdateStaff(ctx, mod.ID, RoleModerator, UpdateStaffInput{Email: ptr("other@example.com")})
	assert.ErrorIs(t, err, ErrEmailExists)

	_, err = env.svc.UpdateStaff(ctx, mod.ID, RoleModerator, UpdateStaffInput{Password: ptr(newPassword)})
	assert.ErrorIs(t, err, ErrPasswordMismatch)

	res := env.login(t, "new@example.com")
	_, err = env.svc.UpdateStaff(ctx, mod.ID, RoleModerator, UpdateStaffInput{Status: ptr(StatusSuspended)})
	require.NoError(t, err)
	v, err := env.svc.ValidateToken(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.False(t, v.Valid, "suspension ends sessions")

	reactivated, err := env.svc.UpdateStaff(ctx, mod.ID, RoleModerator, UpdateStaffInput{Status: ptr(StatusActive)})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, reactivated.Status)

	_, err = env.svc.UpdateStaff(ctx, mod.ID, RoleModerator, UpdateStaffInput{Status: ptr(StatusDeactivated)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSuspendLastAdministrator(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedStaff(t, RoleAdministrator, "root@example.com")

	_, err := env.svc.UpdateStaff(context.Background(), admin.ID, RoleAdministrator, UpdateStaffInput{Status: ptr(StatusSuspended)})
	assert.ErrorIs(t, err, ErrLastAdministrator)
	assert.Equal(t, StatusActive, env.users.get(t, admin.ID).Status)
}

func TestListAndGetStaff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	for _, email := range []string{"m1@example.com", "m2@example.com", "m3@example.com"} {
		env.seedStaff(t, RoleModerator, email)
	}
	env.seedStaff(t, RoleAdministrator, "root@example.com")
	plain := env.register(t, "plain@example.com", 30)

	page, err := env.svc.ListStaff(ctx, RoleModerator, nil, Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "m1@example.com", page.Items[0].Email)

	page, err = env.svc.ListStaff(ctx, RoleModerator, nil, Page{Number: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "m3@example.com", page.Items[0].Email)

	_, err = env.svc.ListStaff(ctx, RoleUser, nil, Page{})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.svc.ListStaff(ctx, RoleModerator, ptr(Status("gone")), Page{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.GetStaff(ctx, plain.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := env.svc.GetStaff(ctx, page.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "m3@example.com", got.Email)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.register(t, "a@example.com", 30)

	got, err := env.svc.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test", got.FirstName)

	updated, err := env.svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{LastName: ptr("Lovelace")})
	require.NoError(t, err)
	assert.Equal(t, "Test", updated.FirstName)
	assert.Equal(t, "Lovelace", env.users.get(t, u.ID).LastName)

	_, err = env.svc.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
