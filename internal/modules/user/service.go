package user

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/delordemm1/go-identity-core/internal/session"
	"golang.org/x/oauth2"
)

// Service is the user module's workflow surface.
type Service interface {
	// Auth
	Register(ctx context.Context, in RegisterInput) (*User, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Logout(ctx context.Context, accessToken string, allDevices bool) error
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	ValidateToken(ctx context.Context, accessToken string) (*TokenValidation, error)
	SessionCount(ctx context.Context, userID string) (int, error)

	// Parental consent
	RequestParentalConsent(ctx context.Context, in ConsentRequestInput) error
	ApproveParentalConsent(ctx context.Context, token string) (*User, error)

	// Email verification
	SendEmailVerification(ctx context.Context, userID string) error
	VerifyEmail(ctx context.Context, token string) (*User, error)
	ResendEmailVerification(ctx context.Context, email string) error

	// Password
	RequestPasswordReset(ctx context.Context, email string) error
	FinalizePasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error

	// Profile
	GetProfile(ctx context.Context, userID string) (*User, error)
	UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*User, error)

	// Role administration
	CreateStaff(ctx context.Context, in CreateStaffInput) (*User, error)
	UpdateStaff(ctx context.Context, id string, role Role, in UpdateStaffInput) (*User, error)
	DeactivateStaff(ctx context.Context, id string, role Role) error
	ListStaff(ctx context.Context, role Role, status *Status, page Page) (*StaffPage, error)
	GetStaff(ctx context.Context, id string) (*User, error)

	// OAuth
	InitiateOAuthLogin(ctx context.Context, provider OAuthProvider) (string, error)
	HandleOAuthCallback(ctx context.Context, in OAuthCallbackInput) (*AuthResult, error)

	// Wait blocks until emails already dispatched in the background have been sent or failed.
	Wait()
}

// notifyTimeout bounds one background email send.
const notifyTimeout = 30 * time.Second

// Config holds the dependencies for the user service.
type Config struct {
	Users       UserRepository
	Tokens      TokenRepository
	Sessions    session.Repository
	OAuthStates OAuthStateRepository

	Credentials CredentialHasher
	Issuer      TokenIssuer
	Notifier    Notifier
	Events      EventPublisher
	Limiter     RateLimiter

	Logger *slog.Logger

	SessionTTL     time.Duration
	ResendCooldown time.Duration
	// OAuth maps provider names to client configs. Unlisted providers are unsupported.
	OAuth map[OAuthProvider]*oauth2.Config

	// Now overrides the clock, mostly for tests.
	Now func() time.Time
}

type service struct {
	users       UserRepository
	tokens      TokenRepository
	sessions    session.Repository
	oauthStates OAuthStateRepository

	credentials CredentialHasher
	issuer      TokenIssuer
	notifier    Notifier
	events      EventPublisher
	limiter     RateLimiter

	logger *slog.Logger

	sessionTTL     time.Duration
	resendCooldown time.Duration
	oauth          map[OAuthProvider]*oauth2.Config
	now            func() time.Time

	inflight sync.WaitGroup
}

// NewService creates a new user service with the given dependencies.
func NewService(cfg *Config) Service {
	s := &service{
		users:          cfg.Users,
		tokens:         cfg.Tokens,
		sessions:       cfg.Sessions,
		oauthStates:    cfg.OAuthStates,
		credentials:    cfg.Credentials,
		issuer:         cfg.Issuer,
		notifier:       cfg.Notifier,
		events:         cfg.Events,
		limiter:        cfg.Limiter,
		logger:         cfg.Logger,
		sessionTTL:     cfg.SessionTTL,
		resendCooldown: cfg.ResendCooldown,
		oauth:          cfg.OAuth,
		now:            cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.sessionTTL <= 0 {
		s.sessionTTL = 7 * 24 * time.Hour
	}
	if s.resendCooldown <= 0 {
		s.resendCooldown = time.Minute
	}
	return s
}
