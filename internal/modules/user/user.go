package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/delordemm1/go-identity-core/internal/validation"
	"github.com/google/uuid"
)

// Role is the authorization role of a user.
type Role string

const (
	RoleUserMinor     Role = "user_minor"
	RoleUser          Role = "user"
	RoleModerator     Role = "moderator"
	RoleAdministrator Role = "administrator"
)

// IsStaff reports whether r can only be assigned administratively.
func (r Role) IsStaff() bool {
	return r == RoleModerator || r == RoleAdministrator
}

func (r Role) Valid() bool {
	switch r {
	case RoleUserMinor, RoleUser, RoleModerator, RoleAdministrator:
		return true
	}
	return false
}

// RoleSource records whether a role was derived from age or assigned by an administrator.
// An assigned role is never recomputed from age.
type RoleSource string

const (
	RoleDerived  RoleSource = "derived"
	RoleAssigned RoleSource = "assigned"
)

// Status is the coarse account lifecycle state.
type Status string

const (
	StatusPendingVerification Status = "pending_verification"
	StatusActive              Status = "active"
	StatusSuspended           Status = "suspended"
	StatusDeactivated         Status = "deactivated"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPendingVerification, StatusActive, StatusSuspended, StatusDeactivated:
		return true
	}
	return false
}

const (
	// ConsentAge is the age below which parental consent gates verification.
	ConsentAge = 13
	AdultAge   = 18
	MinAge     = 1
	MaxAge     = 120
)

// DeriveRole maps an age to the role of a self-registered user.
func DeriveRole(age int) Role {
	if age < AdultAge {
		return RoleUserMinor
	}
	return RoleUser
}

// User is the account aggregate.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Age          int
	FirstName    string
	LastName     string
	Role         Role
	RoleSource   RoleSource
	Verified     bool
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// New creates a self-registered user with an age-derived role, pending verification.
func New(email, passwordHash string, age int, firstName, lastName string, now time.Time) (*User, RegisteredEvent, error) {
	u, err := newUser(email, passwordHash, age, firstName, lastName, now)
	if err != nil {
		return nil, RegisteredEvent{}, err
	}
	u.Role = DeriveRole(age)
	u.RoleSource = RoleDerived
	u.Status = StatusPendingVerification

	return u, RegisteredEvent{
		baseEvent:               baseEvent{UserID: u.ID, At: now},
		Email:                   u.Email,
		Role:                    u.Role,
		RequiresParentalConsent: u.RequiresParentalConsent(),
	}, nil
}

// NewStaff creates a moderator or administrator. Staff skip verification and are active immediately.
func NewStaff(role Role, email, passwordHash string, age int, firstName, lastName string, now time.Time) (*User, StaffCreatedEvent, error) {
	if !role.IsStaff() {
		return nil, StaffCreatedEvent{}, invalid("role", "must be one of: moderator, administrator")
	}
	u, err := newUser(email, passwordHash, age, firstName, lastName, now)
	if err != nil {
		return nil, StaffCreatedEvent{}, err
	}
	if age < AdultAge {
		return nil, StaffCreatedEvent{}, ErrMinorPromotion
	}
	u.Role = role
	u.RoleSource = RoleAssigned
	u.Verified = true
	u.Status = StatusActive

	return u, StaffCreatedEvent{
		baseEvent: baseEvent{UserID: u.ID, At: now},
		Email:     u.Email,
		Role:      role,
	}, nil
}

func newUser(email, passwordHash string, age int, firstName, lastName string, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	if !validation.IsEmail(email) {
		return nil, invalid("email", "must be a valid email")
	}
	if age < MinAge || age > MaxAge {
		return nil, invalid("age", fmt.Sprintf("must be between %d and %d", MinAge, MaxAge))
	}
	if passwordHash == "" {
		return nil, invalid("password", "is required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}
	return &User{
		ID:           id.String(),
		Email:        email,
		PasswordHash: passwordHash,
		Age:          age,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RequiresParentalConsent reports whether this user can only be verified through parental consent.
func (u *User) RequiresParentalConsent() bool {
	return u.RoleSource == RoleDerived && u.Age < ConsentAge
}

// NeedsParentalConsent reports whether consent is still outstanding.
func (u *User) NeedsParentalConsent() bool {
	return u.RequiresParentalConsent() && !u.Verified
}

// CanLogin is true only for verified, active accounts.
func (u *User) CanLogin() bool {
	return u.Verified && u.Status == StatusActive
}

// VerifyEmail marks the user verified and activates a pending account.
// A suspended account stays suspended.
func (u *User) VerifyEmail(now time.Time) error {
	if u.Status == StatusDeactivated {
		return ErrInvalidState.WithDetail("account is deactivated")
	}
	u.Verified = true
	if u.Status == StatusPendingVerification {
		u.Status = StatusActive
	}
	u.UpdatedAt = now
	return nil
}

func (u *User) Activate(now time.Time) error {
	if u.Status == StatusDeactivated {
		return ErrInvalidState.WithDetail("account is deactivated")
	}
	if !u.Verified {
		return ErrInvalidState.WithDetail("account is not verified")
	}
	u.Status = StatusActive
	u.UpdatedAt = now
	return nil
}

func (u *User) Suspend(now time.Time) error {
	if u.Status == StatusDeactivated {
		return ErrInvalidState.WithDetail("account is deactivated")
	}
	u.Status = StatusSuspended
	u.UpdatedAt = now
	return nil
}

// Deactivate is terminal.
func (u *User) Deactivate(now time.Time) error {
	if u.Status == StatusDeactivated {
		return ErrAlreadyDeactivated
	}
	u.Status = StatusDeactivated
	u.UpdatedAt = now
	return nil
}

func (u *User) UpdatePassword(hash string, now time.Time) error {
	if hash == "" {
		return invalid("password", "is required")
	}
	u.PasswordHash = hash
	u.UpdatedAt = now
	return nil
}

func (u *User) ChangeEmail(email string, now time.Time) error {
	email = NormalizeEmail(email)
	if !validation.IsEmail(email) {
		return invalid("email", "must be a valid email")
	}
	u.Email = email
	u.UpdatedAt = now
	return nil
}

func (u *User) Rename(firstName, lastName string, now time.Time) {
	u.FirstName = strings.TrimSpace(firstName)
	u.LastName = strings.TrimSpace(lastName)
	u.UpdatedAt = now
}

// DisplayName is used to address the user in emails.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Email
}

// OAuthProvider names an external identity verifier.
type OAuthProvider string

const (
	OAuthProviderGoogle OAuthProvider = "google"
)

// OAuthState is the CSRF state and PKCE verifier of an in-flight OAuth login.
type OAuthState struct {
	State     string        `db:"state"`
	Provider  OAuthProvider `db:"provider"`
	Verifier  string        `db:"verifier"`
	ExpiresAt time.Time     `db:"expires_at"`
	CreatedAt time.Time     `db:"created_at"`
}
