package user

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/delordemm1/go-identity-core/internal/credential"
	"golang.org/x/oauth2"
)

const oauthStateTTL = 5 * time.Minute

var googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type OAuthCallbackInput struct {
	Provider   OAuthProvider
	State      string
	Code       string
	DeviceInfo string
	IPAddress  string
}

// oAuthUserInfo holds the standardized user information extracted from a provider.
type oAuthUserInfo struct {
	ID            string
	Email         string
	EmailVerified bool
}

// oauthClient wraps a provider config with the call that reads the user's identity.
type oauthClient interface {
	config() *oauth2.Config
	userInfo(ctx context.Context, token *oauth2.Token) (*oAuthUserInfo, error)
}

func (s *service) oauthClient(provider OAuthProvider) (oauthClient, error) {
	cfg, ok := s.oauth[provider]
	if !ok || cfg == nil {
		return nil, ErrUnsupportedOAuthProvider.WithDetail(fmt.Sprintf("unsupported oauth provider: %s", provider))
	}
	switch provider {
	case OAuthProviderGoogle:
		return &googleProvider{cfg: cfg}, nil
	default:
		return nil, ErrUnsupportedOAuthProvider.WithDetail(fmt.Sprintf("unsupported oauth provider: %s", provider))
	}
}

type googleProvider struct {
	cfg *oauth2.Config
}

func (g *googleProvider) config() *oauth2.Config { return g.cfg }

func (g *googleProvider) userInfo(ctx context.Context, token *oauth2.Token) (*oAuthUserInfo, error) {
	client := g.cfg.Client(ctx, token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("get user info from google: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google user info: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read user info response body: %w", err)
	}
	var info struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("unmarshal user info: %w", err)
	}
	return &oAuthUserInfo{ID: info.ID, Email: info.Email, EmailVerified: info.VerifiedEmail}, nil
}

// InitiateOAuthLogin returns the provider redirect URL. State and PKCE verifier are stored server side.
func (s *service) InitiateOAuthLogin(ctx context.Context, provider OAuthProvider) (string, error) {
	client, err := s.oauthClient(provider)
	if err != nil {
		return "", err
	}

	state, err := credential.RandomToken(32)
	if err != nil {
		return "", s.internal("oauth: generate state", err)
	}
	verifier := oauth2.GenerateVerifier()
	now := s.now()
	if err := s.oauthStates.Insert(ctx, &OAuthState{
		State:     state,
		Provider:  provider,
		Verifier:  verifier,
		ExpiresAt: now.Add(oauthStateTTL),
		CreatedAt: now,
	}); err != nil {
		return "", s.internal("oauth: store state", err)
	}

	return client.config().AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// HandleOAuthCallback logs in an existing user whose email the provider has verified.
// Accounts are never provisioned here because the provider does not supply an age.
func (s *service) HandleOAuthCallback(ctx context.Context, in OAuthCallbackInput) (*AuthResult, error) {
	client, err := s.oauthClient(in.Provider)
	if err != nil {
		return nil, err
	}

	st, err := s.oauthStates.Get(ctx, in.State)
	if err != nil {
		return nil, s.internal("oauth: get state", err)
	}
	if err := s.oauthStates.Delete(ctx, in.State); err != nil {
		if errors.Is(err, ErrOAuthStateInvalid) {
			return nil, err
		}
		s.logger.Warn("oauth: delete state failed", "error", err)
	}
	if st.Provider != in.Provider {
		return nil, ErrOAuthStateInvalid
	}
	if !s.now().Before(st.ExpiresAt) {
		return nil, ErrOAuthStateExpired
	}

	tok, err := client.config().Exchange(ctx, in.Code, oauth2.VerifierOption(st.Verifier))
	if err != nil {
		return nil, ErrOAuthExchangeFailed.WithCause(err)
	}
	info, err := client.userInfo(ctx, tok)
	if err != nil {
		return nil, ErrOAuthExchangeFailed.WithCause(err)
	}
	if info.Email == "" || !info.EmailVerified {
		return nil, ErrOAuthEmailMissing
	}

	u, err := s.users.FindByEmail(ctx, info.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrOAuthAccountNotLinked
		}
		return nil, s.internal("oauth: find user", err)
	}
	if !u.CanLogin() {
		return nil, ErrAccountNotReady
	}

	s.logger.Info("user authenticated via oauth", "provider", in.Provider, "user_id", u.ID)
	return s.startSession(ctx, u, in.DeviceInfo, in.IPAddress)
}
