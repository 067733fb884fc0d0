package templates

// WelcomeData holds variables for the user.welcome scenario.
type WelcomeData struct {
	AppName      string
	FirstName    string
	SupportEmail string
}

// Welcome is the typed handle for the user.welcome template.
var Welcome = Expect[WelcomeData]("user.welcome")

// VerifyEmailData holds variables for the user.verify_email scenario.
type VerifyEmailData struct {
	AppName      string
	FirstName    string
	Link         string
	Token        string
	ExpiresIn    string
	SupportEmail string
}

// VerifyEmail is the typed handle for the user.verify_email template.
var VerifyEmail = Expect[VerifyEmailData]("user.verify_email")

// PasswordResetData holds variables for the user.password_reset scenario.
type PasswordResetData struct {
	AppName      string
	FirstName    string
	Link         string
	Token        string
	ExpiresIn    string
	SupportEmail string
}

// PasswordReset is the typed handle for the user.password_reset template.
var PasswordReset = Expect[PasswordResetData]("user.password_reset")

// ParentalConsentData is sent to the parent or guardian of a minor.
type ParentalConsentData struct {
	AppName      string
	ParentName   string
	ChildName    string
	Link         string
	Token        string
	ExpiresIn    string
	SupportEmail string
}

// ParentalConsent is the typed handle for the user.parental_consent template.
var ParentalConsent = Expect[ParentalConsentData]("user.parental_consent")
