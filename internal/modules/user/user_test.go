package user

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesRoleFromAge(t *testing.T) {
	now := time.Now()
	cases := []struct {
		age          int
		role         Role
		needsConsent bool
	}{
		{1, RoleUserMinor, true},
		{10, RoleUserMinor, true},
		{12, RoleUserMinor, true},
		{13, RoleUserMinor, false},
		{17, RoleUserMinor, false},
		{18, RoleUser, false},
		{120, RoleUser, false},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("age %d", tc.age), func(t *testing.T) {
			u, ev, err := New("Kid@Example.com ", "hash", tc.age, "Kid", "", now)
			require.NoError(t, err)
			assert.Equal(t, tc.role, u.Role)
			assert.Equal(t, RoleDerived, u.RoleSource)
			assert.Equal(t, StatusPendingVerification, u.Status)
			assert.False(t, u.Verified)
			assert.Equal(t, tc.needsConsent, u.NeedsParentalConsent())
			assert.Equal(t, "kid@example.com", u.Email)
			assert.Equal(t, u.ID, ev.AggregateID())
			assert.Equal(t, tc.needsConsent, ev.RequiresParentalConsent)
		})
	}
}

func TestNewRejectsInvalidInput(t *testing.T) {
	now := time.Now()
	for name, tc := range map[string]struct {
		email string
		age   int
	}{
		"bad email":    {"not-an-email", 20},
		"age too low":  {"a@example.com", 0},
		"age too high": {"a@example.com", 121},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := New(tc.email, "hash", tc.age, "", "", now)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestCanLoginCombinations(t *testing.T) {
	statuses := []Status{StatusPendingVerification, StatusActive, StatusSuspended, StatusDeactivated}
	for _, verified := range []bool{false, true} {
		for _, status := range statuses {
			t.Run(fmt.Sprintf("verified=%v/%s", verified, status), func(t *testing.T) {
				u := &User{Verified: verified, Status: status}
				assert.Equal(t, verified && status == StatusActive, u.CanLogin())
			})
		}
	}
}

func TestNewStaff(t *testing.T) {
	now := time.Now()

	u, ev, err := NewStaff(RoleModerator, "mod@example.com", "hash", 30, "Mo", "Derator", now)
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, u.Role)
	assert.Equal(t, RoleAssigned, u.RoleSource)
	assert.True(t, u.CanLogin())
	assert.Equal(t, RoleModerator, ev.Role)

	_, _, err = NewStaff(RoleAdministrator, "kid@example.com", "hash", 16, "", "", now)
	assert.ErrorIs(t, err, ErrMinorPromotion)
	assert.Equal(t, KindInvariantViolation, KindOf(err))

	_, _, err = NewStaff(RoleUser, "u@example.com", "hash", 30, "", "", now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAssignedRoleIgnoresAge(t *testing.T) {
	u, _, err := NewStaff(RoleModerator, "mod@example.com", "hash", 18, "", "", time.Now())
	require.NoError(t, err)
	u.Age = 10
	assert.False(t, u.RequiresParentalConsent())
	assert.Equal(t, RoleModerator, u.Role)
}

func TestVerifyEmailTransitions(t *testing.T) {
	now := time.Now()

	pending := &User{Status: StatusPendingVerification}
	require.NoError(t, pending.VerifyEmail(now))
	assert.True(t, pending.Verified)
	assert.Equal(t, StatusActive, pending.Status)

	suspended := &User{Status: StatusSuspended}
	require.NoError(t, suspended.VerifyEmail(now))
	assert.True(t, suspended.Verified)
	assert.Equal(t, StatusSuspended, suspended.Status)

	gone := &User{Status: StatusDeactivated}
	assert.ErrorIs(t, gone.VerifyEmail(now), ErrInvalidState)
	assert.False(t, gone.Verified)
}

func TestStatusTransitions(t *testing.T) {
	now := time.Now()

	u := &User{Status: StatusPendingVerification}
	assert.ErrorIs(t, u.Activate(now), ErrInvalidState, "unverified users cannot be activated")

	u.Verified = true
	require.NoError(t, u.Suspend(now))
	assert.Equal(t, StatusSuspended, u.Status)
	require.NoError(t, u.Activate(now))
	assert.Equal(t, StatusActive, u.Status)

	require.NoError(t, u.Deactivate(now))
	assert.ErrorIs(t, u.Deactivate(now), ErrAlreadyDeactivated)
	assert.ErrorIs(t, u.Activate(now), ErrInvalidState)
	assert.ErrorIs(t, u.Suspend(now), ErrInvalidState)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada", (&User{FirstName: "Ada", Email: "ada@example.com"}).DisplayName())
	assert.Equal(t, "ada@example.com", (&User{Email: "ada@example.com"}).DisplayName())
}
