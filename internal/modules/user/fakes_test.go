package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/delordemm1/go-identity-core/internal/credential"
	"github.com/delordemm1/go-identity-core/internal/events"
	"github.com/delordemm1/go-identity-core/internal/session"
	"github.com/delordemm1/go-identity-core/internal/token"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- clock ---

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// --- users ---

type fakeUsers struct {
	mu   sync.Mutex
	byID map[string]User
	err  error
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byID: map[string]User{}} }

func (r *fakeUsers) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return ErrEmailExists
		}
	}
	r.byID[u.ID] = *u
	return nil
}

func (r *fakeUsers) FindByID(_ context.Context, id string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	u, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (r *fakeUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	email = NormalizeEmail(email)
	for _, u := range r.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeUsers) Update(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[u.ID]; !ok {
		return ErrNotFound
	}
	for id, existing := range r.byID {
		if id != u.ID && existing.Email == u.Email {
			return ErrEmailExists
		}
	}
	r.byID[u.ID] = *u
	return nil
}

func (r *fakeUsers) matching(role Role, status *Status) []User {
	var out []User
	for _, u := range r.byID {
		if u.Role != role || (status != nil && u.Status != *status) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeUsers) CountByRole(_ context.Context, role Role, status *Status) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matching(role, status)), nil
}

func (r *fakeUsers) ListByRole(_ context.Context, role Role, page Page, status *Status) ([]*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page = page.normalize()
	all := r.matching(role, status)
	start := int(page.offset())
	if start >= len(all) {
		return []*User{}, nil
	}
	end := min(start+page.Size, len(all))
	out := make([]*User, 0, end-start)
	for i := start; i < end; i++ {
		u := all[i]
		out = append(out, &u)
	}
	return out, nil
}

// get returns the stored copy, bypassing workflows.
func (r *fakeUsers) get(t *testing.T, id string) User {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	require.True(t, ok, "user %s not stored", id)
	return u
}

func (r *fakeUsers) put(u *User) {
	r.mu.Lock()
	r.byID[u.ID] = *u
	r.mu.Unlock()
}

// --- ephemeral tokens ---

type fakeTokens struct {
	mu     sync.Mutex
	tokens []*EphemeralToken
}

func newFakeTokens() *fakeTokens { return &fakeTokens{} }

func (r *fakeTokens) Save(_ context.Context, t *EphemeralToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	cp.Token = ""
	r.tokens = append(r.tokens, &cp)
	return nil
}

func (r *fakeTokens) FindByToken(_ context.Context, purpose Purpose, plaintext string) (*EphemeralToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := session.HashToken(plaintext)
	for _, t := range r.tokens {
		if t.Purpose == purpose && t.TokenHash == h {
			cp := *t
			cp.Token = plaintext
			return &cp, nil
		}
	}
	return nil, ErrTokenNotFound
}

func (r *fakeTokens) FindPendingForUser(_ context.Context, purpose Purpose, userID string, now time.Time) (*EphemeralToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.tokens) - 1; i >= 0; i-- {
		t := r.tokens[i]
		if t.Purpose == purpose && t.UserID == userID && t.IsValid(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, ErrTokenNotFound
}

func (r *fakeTokens) InvalidateAllForUser(_ context.Context, purpose Purpose, userID string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.tokens {
		if t.Purpose == purpose && t.UserID == userID && t.IsValid(now) {
			t.Expire(now)
			n++
		}
	}
	return n, nil
}

func (r *fakeTokens) MarkUsed(_ context.Context, tok *EphemeralToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tokens {
		if t.ID != tok.ID {
			continue
		}
		if t.Used {
			return t.Purpose.alreadyUsed()
		}
		t.Used = true
		t.UsedAt = tok.UsedAt
		return nil
	}
	return ErrTokenNotFound
}

func (r *fakeTokens) byHash(plaintext string) *EphemeralToken {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := session.HashToken(plaintext)
	for _, t := range r.tokens {
		if t.TokenHash == h {
			cp := *t
			return &cp
		}
	}
	return nil
}

// --- sessions ---

type fakeSessions struct {
	mu   sync.Mutex
	byID map[string]session.Session
	// beforeUpdate runs once at the start of the next UpdateTokens, to interleave a competing call.
	beforeUpdate func()
}

func newFakeSessions() *fakeSessions { return &fakeSessions{byID: map[string]session.Session{}} }

func (r *fakeSessions) Create(_ context.Context, s *session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.ID] = *s
	return nil
}

func (r *fakeSessions) find(match func(session.Session) bool) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byID {
		if match(s) {
			return &s, nil
		}
	}
	return nil, session.ErrNotFound
}

func (r *fakeSessions) FindByAccessToken(_ context.Context, accessToken string) (*session.Session, error) {
	return r.find(func(s session.Session) bool { return s.AccessToken == accessToken })
}

func (r *fakeSessions) FindByRefreshToken(_ context.Context, refreshToken string) (*session.Session, error) {
	return r.find(func(s session.Session) bool { return s.RefreshToken == refreshToken })
}

func (r *fakeSessions) UpdateTokens(_ context.Context, s *session.Session, previousRefreshToken string) error {
	if hook := r.beforeUpdate; hook != nil {
		r.beforeUpdate = nil
		hook()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[s.ID]
	if !ok || !stored.Active || stored.RefreshToken != previousRefreshToken {
		return session.ErrNotFound
	}
	stored.AccessToken = s.AccessToken
	stored.RefreshToken = s.RefreshToken
	r.byID[s.ID] = stored
	return nil
}

func (r *fakeSessions) Invalidate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return session.ErrNotFound
	}
	s.Invalidate()
	r.byID[id] = s
	return nil
}

func (r *fakeSessions) InvalidateAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.byID {
		if s.UserID == userID && s.Active {
			s.Invalidate()
			r.byID[id] = s
			n++
		}
	}
	return n, nil
}

func (r *fakeSessions) CountActiveForUser(_ context.Context, userID string, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.byID {
		if s.UserID == userID && s.IsValid(now) {
			n++
		}
	}
	return n, nil
}

func (r *fakeSessions) get(id string) (session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	return s, ok
}

// --- oauth states ---

type fakeOAuthStates struct {
	mu     sync.Mutex
	states map[string]OAuthState
}

func newFakeOAuthStates() *fakeOAuthStates {
	return &fakeOAuthStates{states: map[string]OAuthState{}}
}

func (r *fakeOAuthStates) Insert(_ context.Context, s *OAuthState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[s.State] = *s
	return nil
}

func (r *fakeOAuthStates) Get(_ context.Context, state string) (*OAuthState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.states[state]
	if !ok {
		return nil, ErrOAuthStateInvalid
	}
	return &s, nil
}

func (r *fakeOAuthStates) Delete(_ context.Context, state string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[state]; !ok {
		return ErrOAuthStateInvalid
	}
	delete(r.states, state)
	return nil
}

func (r *fakeOAuthStates) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, s := range r.states {
		if !now.Before(s.ExpiresAt) {
			delete(r.states, k)
			n++
		}
	}
	return n, nil
}

// --- notifier ---

type sentEmail struct {
	Kind  string
	To    string
	Token string
}

// recordingNotifier collects sends. Sends run on background goroutines, so readers
// first wait for the service to drain them through flush.
type recordingNotifier struct {
	mu    sync.Mutex
	sent  []sentEmail
	err   error
	block chan struct{}
	flush func()
}

func (n *recordingNotifier) record(kind, to, tok string) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentEmail{Kind: kind, To: to, Token: tok})
	return nil
}

func (n *recordingNotifier) SendWelcome(_ context.Context, to, _ string) error {
	return n.record("welcome", to, "")
}

func (n *recordingNotifier) SendVerification(_ context.Context, to, _, tok string) error {
	return n.record("verification", to, tok)
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, to, _, tok string) error {
	return n.record("password_reset", to, tok)
}

func (n *recordingNotifier) SendParentalConsent(_ context.Context, parentEmail, _, _, tok string) error {
	return n.record("parental_consent", parentEmail, tok)
}

// last returns the most recent email of kind, failing the test when none was sent.
func (n *recordingNotifier) last(t *testing.T, kind string) sentEmail {
	t.Helper()
	n.wait()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].Kind == kind {
			return n.sent[i]
		}
	}
	require.FailNow(t, "no email sent", "kind %s", kind)
	return sentEmail{}
}

func (n *recordingNotifier) count(kind string) int {
	n.wait()
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.sent {
		if e.Kind == kind {
			c++
		}
	}
	return c
}

func (n *recordingNotifier) wait() {
	if n.flush != nil {
		n.flush()
	}
}

// --- events ---

type recordingEvents struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (p *recordingEvents) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.names = append(p.names, e.EventName())
	return nil
}

func (p *recordingEvents) PublishBatch(ctx context.Context, evs []events.Event) error {
	for _, e := range evs {
		if err := p.Publish(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (p *recordingEvents) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.names...)
}

// --- rate limiter ---

type fakeLimiter struct {
	mu    sync.Mutex
	clock *testClock
	until map[string]time.Time
}

func (l *fakeLimiter) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock.Now()
	if until, ok := l.until[key]; ok && now.Before(until) {
		return false, nil
	}
	l.until[key] = now.Add(window)
	return true, nil
}

// --- harness ---

type testEnv struct {
	svc      Service
	clock    *testClock
	users    *fakeUsers
	tokens   *fakeTokens
	sessions *fakeSessions
	states   *fakeOAuthStates
	notifier *recordingNotifier
	events   *recordingEvents
	issuer   *token.Issuer
	hasher   *credential.Bcrypt
}

const testPassword = "Secret123"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newTestClock()
	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		Issuer:        "identity-test",
		Now:           clock.Now,
	}, nil)
	require.NoError(t, err)

	env := &testEnv{
		clock:    clock,
		users:    newFakeUsers(),
		tokens:   newFakeTokens(),
		sessions: newFakeSessions(),
		states:   newFakeOAuthStates(),
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
		issuer:   issuer,
		hasher:   credential.NewBcrypt(bcrypt.MinCost),
	}
	env.svc = NewService(&Config{
		Users:       env.users,
		Tokens:      env.tokens,
		Sessions:    env.sessions,
		OAuthStates: env.states,
		Credentials: env.hasher,
		Issuer:      issuer,
		Notifier:    env.notifier,
		Events:      env.events,
		Limiter:     &fakeLimiter{clock: clock, until: map[string]time.Time{}},
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionTTL:  24 * time.Hour,
		Now:         clock.Now,
	})
	env.notifier.flush = env.svc.Wait
	t.Cleanup(env.svc.Wait)
	return env
}

// register creates a self-registered user through the workflow.
func (e *testEnv) register(t *testing.T, email string, age int) *User {
	t.Helper()
	u, err := e.svc.Register(context.Background(), RegisterInput{
		Email: email, Password: testPassword, Age: age, FirstName: "Test",
	})
	require.NoError(t, err)
	return u
}

// registerVerified registers an adult and completes email verification.
func (e *testEnv) registerVerified(t *testing.T, email string) *User {
	t.Helper()
	u := e.register(t, email, 30)
	tok := e.notifier.last(t, "verification").Token
	u, err := e.svc.VerifyEmail(context.Background(), tok)
	require.NoError(t, err)
	return u
}

// seedStaff stores an active staff member directly.
func (e *testEnv) seedStaff(t *testing.T, role Role, email string) *User {
	t.Helper()
	hash, err := e.hasher.Hash(testPassword)
	require.NoError(t, err)
	u, _, err := NewStaff(role, email, hash, 35, "Staff", "Member", e.clock.Now())
	require.NoError(t, err)
	e.users.put(u)
	e.clock.Advance(time.Second)
	return u
}

func (e *testEnv) login(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := e.svc.Login(context.Background(), LoginInput{Email: email, Password: testPassword, IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	return res
}

var errBoom = errors.New("boom")
