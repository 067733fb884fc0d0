package user

import "time"

type baseEvent struct {
	UserID string    `json:"userId"`
	At     time.Time `json:"occurredAt"`
}

func (e baseEvent) AggregateID() string   { return e.UserID }
func (e baseEvent) OccurredAt() time.Time { return e.At }

func newBase(userID string, at time.Time) baseEvent {
	return baseEvent{UserID: userID, At: at}
}

type RegisteredEvent struct {
	baseEvent
	Email                   string `json:"email"`
	Role                    Role   `json:"role"`
	RequiresParentalConsent bool   `json:"requiresParentalConsent"`
}

func (RegisteredEvent) EventName() string { return "user.registered" }

type StaffCreatedEvent struct {
	baseEvent
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (StaffCreatedEvent) EventName() string { return "user.staff_created" }

type EmailVerifiedEvent struct {
	baseEvent
}

func (EmailVerifiedEvent) EventName() string { return "user.email_verified" }

type ParentalConsentRequestedEvent struct {
	baseEvent
	ParentEmail string `json:"parentEmail"`
}

func (ParentalConsentRequestedEvent) EventName() string { return "user.parental_consent_requested" }

type ParentalConsentApprovedEvent struct {
	baseEvent
}

func (ParentalConsentApprovedEvent) EventName() string { return "user.parental_consent_approved" }

type PasswordChangedEvent struct {
	baseEvent
	Reset bool `json:"reset"`
}

func (PasswordChangedEvent) EventName() string { return "user.password_changed" }

type DeactivatedEvent struct {
	baseEvent
	Role Role `json:"role"`
}

func (DeactivatedEvent) EventName() string { return "user.deactivated" }

type LoggedInEvent struct {
	baseEvent
	SessionID string `json:"sessionId"`
	IPAddress string `json:"ipAddress,omitempty"`
}

func (LoggedInEvent) EventName() string { return "user.logged_in" }
