package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// fakeGoogle serves the token and userinfo endpoints.
func fakeGoogle(t *testing.T, email string, verified bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.NotEmpty(t, r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "provider-token", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer provider-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "g-1", "email": email, "verified_email": verified})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	prev := googleUserInfoURL
	googleUserInfoURL = srv.URL + "/userinfo"
	t.Cleanup(func() { googleUserInfoURL = prev })
	return srv
}

func newOAuthEnv(t *testing.T, email string, verified bool) *testEnv {
	t.Helper()
	srv := fakeGoogle(t, email, verified)
	env := newTestEnv(t)
	env.svc.(*service).oauth = map[OAuthProvider]*oauth2.Config{
		OAuthProviderGoogle: {
			ClientID:     "client",
			ClientSecret: "secret",
			RedirectURL:  "http://localhost/auth/oauth/google/callback",
			Scopes:       []string{"email"},
			Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"},
		},
	}
	return env
}

// initiate starts a login and returns the state embedded in the redirect URL.
func initiate(t *testing.T, env *testEnv) string {
	t.Helper()
	redirect, err := env.svc.InitiateOAuthLogin(context.Background(), OAuthProviderGoogle)
	require.NoError(t, err)
	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestOAuthLoginExistingUser(t *testing.T) {
	env := newOAuthEnv(t, "a@example.com", true)
	env.registerVerified(t, "a@example.com")
	state := initiate(t, env)

	res, err := env.svc.HandleOAuthCallback(context.Background(), OAuthCallbackInput{
		Provider: OAuthProviderGoogle, State: state, Code: "code",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", res.User.Email)

	v, err := env.svc.ValidateToken(context.Background(), res.AccessToken)
	require.NoError(t, err)
	assert.True(t, v.Valid)

	_, err = env.svc.HandleOAuthCallback(context.Background(), OAuthCallbackInput{
		Provider: OAuthProviderGoogle, State: state, Code: "code",
	})
	assert.ErrorIs(t, err, ErrOAuthStateInvalid, "state is single use")
}

func TestOAuthCallbackRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown account", func(t *testing.T) {
		env := newOAuthEnv(t, "stranger@example.com", true)
		_, err := env.svc.HandleOAuthCallback(ctx, OAuthCallbackInput{Provider: OAuthProviderGoogle, State: initiate(t, env), Code: "c"})
		assert.ErrorIs(t, err, ErrOAuthAccountNotLinked)
	})

	t.Run("unverified provider email", func(t *testing.T) {
		env := newOAuthEnv(t, "a@example.com", false)
		env.registerVerified(t, "a@example.com")
		_, err := env.svc.HandleOAuthCallback(ctx, OAuthCallbackInput{Provider: OAuthProviderGoogle, State: initiate(t, env), Code: "c"})
		assert.ErrorIs(t, err, ErrOAuthEmailMissing)
	})

	t.Run("account not ready", func(t *testing.T) {
		env := newOAuthEnv(t, "a@example.com", true)
		env.register(t, "a@example.com", 30)
		_, err := env.svc.HandleOAuthCallback(ctx, OAuthCallbackInput{Provider: OAuthProviderGoogle, State: initiate(t, env), Code: "c"})
		assert.ErrorIs(t, err, ErrAccountNotReady)
	})

	t.Run("expired state", func(t *testing.T) {
		env := newOAuthEnv(t, "a@example.com", true)
		state := initiate(t, env)
		env.clock.Advance(oauthStateTTL)
		_, err := env.svc.HandleOAuthCallback(ctx, OAuthCallbackInput{Provider: OAuthProviderGoogle, State: state, Code: "c"})
		assert.ErrorIs(t, err, ErrOAuthStateExpired)
	})

	t.Run("unknown state", func(t *testing.T) {
		env := newOAuthEnv(t, "a@example.com", true)
		_, err := env.svc.HandleOAuthCallback(ctx, OAuthCallbackInput{Provider: OAuthProviderGoogle, State: "forged", Code: "c"})
		assert.ErrorIs(t, err, ErrOAuthStateInvalid)
	})

	t.Run("unsupported provider", func(t *testing.T) {
		env := newOAuthEnv(t, "a@example.com", true)
		_, err := env.svc.InitiateOAuthLogin(ctx, OAuthProvider("apple"))
		assert.ErrorIs(t, err, ErrUnsupportedOAuthProvider)
	})
}
