package session

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"feedr/pkg/logger"
	"feedr/pkg/store"
	"feedr/pkg/user"
)

type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	LoggingOut
)

const minPasswordLen = 6

var (
	ErrSignInRequired      = errors.New("session: sign in required")
	ErrInvalidAuthResponse = errors.New("session: server response is missing token or user")
	ErrNotPersisted        = errors.New("session: credentials were not persisted")
	ErrShortPassword       = errors.New("session: password is too short")
	ErrBadEmail            = errors.New("session: email address is malformed")
	ErrEmptyUsername       = errors.New("session: username must not be empty")
	ErrUnknownProvider     = errors.New("session: unknown OAuth provider")
)

var emailRe = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type (
	// Doer is the slice of the transport the manager needs.
	Doer interface {
		Get(ctx context.Context, path string, out interface{}) error
		Post(ctx context.Context, path string, body, out interface{}) error
		Put(ctx context.Context, path string, body, out interface{}) error
	}

	// AuthResponse is what login, register auto-login and OAuth must all
	// return. Both fields are mandatory; a nominally successful HTTP call
	// without either is treated as a failure.
	AuthResponse struct {
		Token string    `json:"token"`
		User  *user.User `json:"user"`
	}

	Manager struct {
		mu      sync.Mutex
		state   State
		loading bool
		user    *user.User
		avatar  string

		store store.Store
		api   Doer
	}
)

func NewManager(st store.Store, api Doer) *Manager {
	return &Manager{
		state: Unauthenticated,
		store: st,
		api:   api,
	}
}

// Restore is the startup fast path: adopt the persisted token and cached
// user without touching the network. Callers should follow up with
// Revalidate in the background. A token that is already expired locally
// short-circuits straight to a cleared session.
func (m *Manager) Restore() error {
	m.setLoading(true)
	defer m.setLoading(false)

	token, err := m.store.Get(store.KeyToken)
	if err != nil {
		return errors.Wrap(err, "session: can't read persisted token")
	}
	if token == "" {
		m.setState(Unauthenticated, nil)
		return nil
	}
	if tokenExpired(token) {
		logger.Log(context.Background()).Info("session: persisted token expired, clearing")
		return m.clear()
	}

	userJSON, err := m.store.Get(store.KeyUser)
	if err != nil {
		return errors.Wrap(err, "session: can't read cached user")
	}
	cached := new(user.User)
	if userJSON == "" || json.Unmarshal([]byte(userJSON), cached) != nil {
		// Token without a cached user: stay signed out locally and let
		// Revalidate settle it against the server.
		m.setState(Unauthenticated, nil)
	} else {
		m.setState(Authenticated, cached)
	}

	if avatar, err := m.store.Get(store.KeyAvatar); err == nil {
		m.mu.Lock()
		m.avatar = avatar
		m.mu.Unlock()
	}
	return nil
}

// Revalidate confirms the restored session against the remote content
// store. An invalid or expired token forces the session back to
// unauthenticated and clears everything persisted.
func (m *Manager) Revalidate(ctx context.Context) error {
	raw := new(user.Raw)
	if err := m.api.Get(ctx, "/me", raw); err != nil {
		logger.Log(ctx).Errorw("session: token validation failed", "error", err)
		if clearErr := m.clear(); clearErr != nil {
			return clearErr
		}
		return errors.Wrap(err, "session: token validation failed")
	}

	current := raw.Normalize()
	if err := m.persistUser(current); err != nil {
		return err
	}
	m.setState(Authenticated, current)
	return nil
}

func (m *Manager) Login(ctx context.Context, email, password string) (*user.User, error) {
	if !emailRe.MatchString(email) {
		return nil, ErrBadEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrShortPassword
	}

	m.setLoading(true)
	defer m.setLoading(false)
	m.setState(Authenticating, nil)

	resp := new(AuthResponse)
	payload := map[string]string{"email": email, "password": password}
	if err := m.api.Post(ctx, "/login", payload, resp); err != nil {
		m.setState(Unauthenticated, nil)
		return nil, errors.Wrap(err, "session: login failed")
	}
	if err := m.adopt(resp); err != nil {
		m.setState(Unauthenticated, nil)
		return nil, err
	}
	return m.User(), nil
}

// Register creates the account and then logs in with the same
// credentials, so a successful return always leaves a full session.
func (m *Manager) Register(ctx context.Context, username, email, password, avatarId string) (*user.User, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}
	if !emailRe.MatchString(email) {
		return nil, ErrBadEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrShortPassword
	}

	payload := map[string]string{
		"username": username,
		"email":    email,
		"password": password,
		"avatar":   avatarId,
	}
	if err := m.api.Post(ctx, "/register", payload, nil); err != nil {
		return nil, errors.Wrap(err, "session: registration failed")
	}

	u, err := m.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if avatarId != "" {
		if err := m.SetSelectedAvatar(avatarId); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// OAuth signs in through /auth/google or /auth/apple with a provider
// token, with the same response validation as password login.
func (m *Manager) OAuth(ctx context.Context, provider, providerToken string) (*user.User, error) {
	if provider != "google" && provider != "apple" {
		return nil, ErrUnknownProvider
	}

	m.setLoading(true)
	defer m.setLoading(false)
	m.setState(Authenticating, nil)

	resp := new(AuthResponse)
	payload := map[string]string{"token": providerToken, "provider": provider}
	if err := m.api.Post(ctx, "/auth/"+provider, payload, resp); err != nil {
		m.setState(Unauthenticated, nil)
		return nil, errors.Wrapf(err, "session: %s login failed", provider)
	}
	if err := m.adopt(resp); err != nil {
		m.setState(Unauthenticated, nil)
		return nil, err
	}
	return m.User(), nil
}

// adopt validates an auth response, persists it, and only reports success
// once a synchronous read-back confirms the write stuck.
func (m *Manager) adopt(resp *AuthResponse) error {
	if resp.Token == "" || resp.User == nil {
		return ErrInvalidAuthResponse
	}

	userJSON, err := json.Marshal(resp.User)
	if err != nil {
		return errors.Wrap(err, "session: can't marshal user")
	}
	err = m.store.MultiSet(map[string]string{
		store.KeyToken: resp.Token,
		store.KeyUser:  string(userJSON),
	})
	if err != nil {
		return errors.Wrap(err, "session: can't persist credentials")
	}

	savedToken, err := m.store.Get(store.KeyToken)
	if err != nil {
		return errors.Wrap(err, "session: credential read-back failed")
	}
	savedUser, err := m.store.Get(store.KeyUser)
	if err != nil {
		return errors.Wrap(err, "session: credential read-back failed")
	}
	if savedToken == "" || savedUser == "" {
		return ErrNotPersisted
	}

	m.setState(Authenticated, resp.User)
	return nil
}

func (m *Manager) Logout() error {
	m.setLoading(true)
	defer m.setLoading(false)
	m.setState(LoggingOut, nil)
	return m.clear()
}

func (m *Manager) clear() error {
	err := m.store.MultiRemove(store.KeyToken, store.KeyUser, store.KeyAvatar)
	m.mu.Lock()
	m.avatar = ""
	m.mu.Unlock()
	m.setState(Unauthenticated, nil)
	if err != nil {
		return errors.Wrap(err, "session: can't clear persisted credentials")
	}
	return nil
}

// HandleUnauthorized is the transport's 401 hook: any endpoint rejecting
// the token drops the whole session.
func (m *Manager) HandleUnauthorized() {
	if err := m.clear(); err != nil {
		logger.Log(context.Background()).Errorw("session: can't clear after 401", "error", err)
	}
}

// RequireUser gates mutations: it answers the signed-in viewer or
// ErrSignInRequired, checked synchronously before any network call.
func (m *Manager) RequireUser() (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated || m.user == nil {
		return nil, ErrSignInRequired
	}
	u := *m.user
	return &u, nil
}

func (m *Manager) RequireAuth() error {
	_, err := m.RequireUser()
	return err
}

func (m *Manager) User() *user.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) IsLoading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Token makes the manager a transport token source.
func (m *Manager) Token() string {
	token, err := m.store.Get(store.KeyToken)
	if err != nil {
		return ""
	}
	return token
}

func (m *Manager) SelectedAvatar() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.avatar
}

func (m *Manager) SetSelectedAvatar(avatarId string) error {
	if err := m.store.Set(store.KeyAvatar, avatarId); err != nil {
		return errors.Wrap(err, "session: can't persist avatar")
	}
	m.mu.Lock()
	m.avatar = avatarId
	m.mu.Unlock()
	return nil
}

// UpdateAvatar pushes the new avatar to the profile and refreshes the
// cached user.
func (m *Manager) UpdateAvatar(ctx context.Context, avatarId string) (*user.User, error) {
	viewer, err := m.RequireUser()
	if err != nil {
		return nil, err
	}

	raw := new(user.Raw)
	payload := map[string]string{"avatar": avatarId}
	if err := m.api.Put(ctx, fmt.Sprintf("/users/%d", viewer.Id), payload, raw); err != nil {
		return nil, errors.Wrap(err, "session: can't update avatar")
	}

	updated := raw.Normalize()
	if err := m.persistUser(updated); err != nil {
		return nil, err
	}
	m.setState(Authenticated, updated)
	return updated, nil
}

func (m *Manager) persistUser(u *user.User) error {
	userJSON, err := json.Marshal(u)
	if err != nil {
		return errors.Wrap(err, "session: can't marshal user")
	}
	if err := m.store.Set(store.KeyUser, string(userJSON)); err != nil {
		return errors.Wrap(err, "session: can't persist user")
	}
	return nil
}

func (m *Manager) setState(state State, u *user.User) {
	m.mu.Lock()
	m.state = state
	m.user = u
	m.mu.Unlock()
}

func (m *Manager) setLoading(loading bool) {
	m.mu.Lock()
	m.loading = loading
	m.mu.Unlock()
}

// tokenExpired peeks at the JWT exp claim without verifying the
// signature; verification is the server's job. An unreadable token is not
// treated as expired.
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return false
	}
	return time.Now().Unix() > int64(exp)
}
