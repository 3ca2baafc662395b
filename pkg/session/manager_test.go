package session

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	gomock "github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"feedr/pkg/store"
	"feedr/pkg/transport"
)

const (
	testEmail    = "pike@example.com"
	testPassword = "sdfsdfsdf"
)

func newTestStore(t *testing.T) *store.FileStore {
	t.Helper()
	fs, err := store.NewFileStore(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("can't create file store: %s", err)
	}
	return fs
}

// silentAPI fails the test on any network call; used where the manager
// must reject before reaching the transport.
type silentAPI struct{ t *testing.T }

func (s silentAPI) Get(context.Context, string, interface{}) error {
	s.t.Error("unexpected GET")
	return nil
}
func (s silentAPI) Post(context.Context, string, interface{}, interface{}) error {
	s.t.Error("unexpected POST")
	return nil
}
func (s silentAPI) Put(context.Context, string, interface{}, interface{}) error {
	s.t.Error("unexpected PUT")
	return nil
}

func authOKHandler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"token": %q, "user": {"id": 1, "username": "pike", "email": %q}}`, token, testEmail)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("success persists and authenticates", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/login", authOKHandler("jwt123")).Methods("POST")
		srv := httptest.NewServer(r)
		defer srv.Close()

		st := newTestStore(t)
		m := NewManager(st, transport.New(srv.URL))

		u, err := m.Login(ctx, testEmail, testPassword)
		assert.NoError(t, err)
		assert.Equal(t, "pike", u.Username)
		assert.Equal(t, Authenticated, m.State())

		tok, _ := st.Get(store.KeyToken)
		assert.Equal(t, "jwt123", tok)
		usr, _ := st.Get(store.KeyUser)
		assert.Contains(t, usr, `"username":"pike"`)
	})

	t.Run("response missing token is invalid", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
			// HTTP 200, but no token.
			w.Write([]byte(`{"user": {"id": 1, "username": "pike"}}`))
		}).Methods("POST")
		srv := httptest.NewServer(r)
		defer srv.Close()

		m := NewManager(newTestStore(t), transport.New(srv.URL))

		_, err := m.Login(ctx, testEmail, testPassword)
		assert.ErrorIs(t, err, ErrInvalidAuthResponse)
		assert.Equal(t, Unauthenticated, m.State())
		_, err = m.RequireUser()
		assert.ErrorIs(t, err, ErrSignInRequired)
	})

	t.Run("server rejection surfaces and stays signed out", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/login", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "wrong password"}`))
		}).Methods("POST")
		srv := httptest.NewServer(r)
		defer srv.Close()

		m := NewManager(newTestStore(t), transport.New(srv.URL))

		_, err := m.Login(ctx, testEmail, testPassword)
		assert.Error(t, err)
		assert.Equal(t, Unauthenticated, m.State())
	})
}

func TestLoginValidation(t *testing.T) {
	ctx := context.Background()
	m := NewManager(newTestStore(t), silentAPI{t})

	t.Run("malformed email", func(t *testing.T) {
		_, err := m.Login(ctx, "not-an-email", testPassword)
		assert.ErrorIs(t, err, ErrBadEmail)
	})

	t.Run("short password", func(t *testing.T) {
		_, err := m.Login(ctx, testEmail, "abc")
		assert.ErrorIs(t, err, ErrShortPassword)
	})
}

func TestLoginReadBackFailure(t *testing.T) {
	// The HTTP call succeeds but the read-back sees nothing persisted;
	// login must reject anyway.
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := mux.NewRouter()
	r.HandleFunc("/login", authOKHandler("jwt123")).Methods("POST")
	srv := httptest.NewServer(r)
	defer srv.Close()

	mockStore := NewMockStore(ctrl)
	mockStore.EXPECT().MultiSet(gomock.Any()).Return(nil)
	mockStore.EXPECT().Get(store.KeyToken).Return("", nil)
	mockStore.EXPECT().Get(store.KeyUser).Return("", nil).AnyTimes()

	m := NewManager(mockStore, transport.New(srv.URL))

	_, err := m.Login(context.Background(), testEmail, testPassword)
	assert.ErrorIs(t, err, ErrNotPersisted)
	assert.Equal(t, Unauthenticated, m.State())
}

func TestOAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("google sign-in persists and authenticates", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/auth/google", authOKHandler("jwt123")).Methods("POST")
		srv := httptest.NewServer(r)
		defer srv.Close()

		st := newTestStore(t)
		m := NewManager(st, transport.New(srv.URL))

		u, err := m.OAuth(ctx, "google", "provider-token")
		assert.NoError(t, err)
		assert.Equal(t, "pike", u.Username)
		assert.Equal(t, Authenticated, m.State())

		tok, _ := st.Get(store.KeyToken)
		assert.Equal(t, "jwt123", tok)
	})

	t.Run("response missing user is invalid", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/auth/apple", func(w http.ResponseWriter, _ *http.Request) {
			// HTTP 200, but no user.
			w.Write([]byte(`{"token": "jwt123"}`))
		}).Methods("POST")
		srv := httptest.NewServer(r)
		defer srv.Close()

		m := NewManager(newTestStore(t), transport.New(srv.URL))

		_, err := m.OAuth(ctx, "apple", "provider-token")
		assert.ErrorIs(t, err, ErrInvalidAuthResponse)
		assert.Equal(t, Unauthenticated, m.State())
	})

	t.Run("unknown provider is rejected before the network", func(t *testing.T) {
		m := NewManager(newTestStore(t), silentAPI{t})
		_, err := m.OAuth(ctx, "github", "provider-token")
		assert.ErrorIs(t, err, ErrUnknownProvider)
	})
}

func TestRegisterAutoLogin(t *testing.T) {
	registered := false
	r := mux.NewRouter()
	r.HandleFunc("/register", func(w http.ResponseWriter, _ *http.Request) {
		registered = true
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message": "ok", "user": {"id": 1, "username": "pike"}}`))
	}).Methods("POST")
	r.HandleFunc("/login", authOKHandler("jwt123")).Methods("POST")
	srv := httptest.NewServer(r)
	defer srv.Close()

	st := newTestStore(t)
	m := NewManager(st, transport.New(srv.URL))

	u, err := m.Register(context.Background(), "pike", testEmail, testPassword, "avatar-3")
	assert.NoError(t, err)
	assert.True(t, registered)
	assert.Equal(t, "pike", u.Username)
	assert.Equal(t, Authenticated, m.State())
	assert.Equal(t, "avatar-3", m.SelectedAvatar())

	avatar, _ := st.Get(store.KeyAvatar)
	assert.Equal(t, "avatar-3", avatar)
}

func TestRestoreAndRevalidate(t *testing.T) {
	ctx := context.Background()

	t.Run("no token stays unauthenticated", func(t *testing.T) {
		m := NewManager(newTestStore(t), silentAPI{t})
		assert.NoError(t, m.Restore())
		assert.Equal(t, Unauthenticated, m.State())
	})

	t.Run("cached user is the fast path", func(t *testing.T) {
		st := newTestStore(t)
		st.MultiSet(map[string]string{
			store.KeyToken: "opaque-token",
			store.KeyUser:  `{"id": 1, "username": "pike"}`,
		})

		m := NewManager(st, silentAPI{t})
		assert.NoError(t, m.Restore())
		assert.Equal(t, Authenticated, m.State())
		assert.Equal(t, "pike", m.User().Username)
	})

	t.Run("token without cached user recovers via revalidation", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/me", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"id": 1, "username": "pike"}`))
		}).Methods("GET")
		srv := httptest.NewServer(r)
		defer srv.Close()

		st := newTestStore(t)
		st.Set(store.KeyToken, "opaque-token")

		m := NewManager(st, transport.New(srv.URL))
		assert.NoError(t, m.Restore())
		assert.Equal(t, Unauthenticated, m.State())

		// The orphaned token still settles against the server.
		assert.NoError(t, m.Revalidate(ctx))
		assert.Equal(t, Authenticated, m.State())
		usr, _ := st.Get(store.KeyUser)
		assert.Contains(t, usr, "pike")
	})

	t.Run("locally expired token clears immediately", func(t *testing.T) {
		expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		signed, err := expired.SignedString([]byte("whatever"))
		if err != nil {
			t.Fatalf("can't sign test token: %s", err)
		}

		st := newTestStore(t)
		st.Set(store.KeyToken, signed)

		m := NewManager(st, silentAPI{t})
		assert.NoError(t, m.Restore())
		assert.Equal(t, Unauthenticated, m.State())

		tok, _ := st.Get(store.KeyToken)
		assert.Equal(t, "", tok)
	})

	t.Run("failed revalidation forces sign-out", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/me", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "token expired"}`))
		}).Methods("GET")
		srv := httptest.NewServer(r)
		defer srv.Close()

		st := newTestStore(t)
		st.MultiSet(map[string]string{
			store.KeyToken: "stale-token",
			store.KeyUser:  `{"id": 1, "username": "pike"}`,
		})

		m := NewManager(st, transport.New(srv.URL))
		assert.NoError(t, m.Restore())
		assert.Equal(t, Authenticated, m.State())

		assert.Error(t, m.Revalidate(ctx))
		assert.Equal(t, Unauthenticated, m.State())
		tok, _ := st.Get(store.KeyToken)
		assert.Equal(t, "", tok)
	})

	t.Run("successful revalidation refreshes the cached user", func(t *testing.T) {
		r := mux.NewRouter()
		r.HandleFunc("/me", func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"id": 1, "username": "pike-renamed"}`))
		}).Methods("GET")
		srv := httptest.NewServer(r)
		defer srv.Close()

		st := newTestStore(t)
		st.MultiSet(map[string]string{
			store.KeyToken: "opaque-token",
			store.KeyUser:  `{"id": 1, "username": "pike"}`,
		})

		m := NewManager(st, transport.New(srv.URL))
		assert.NoError(t, m.Restore())
		assert.NoError(t, m.Revalidate(ctx))
		assert.Equal(t, "pike-renamed", m.User().Username)

		usr, _ := st.Get(store.KeyUser)
		assert.Contains(t, usr, "pike-renamed")
	})
}

func TestLogoutClearsEverything(t *testing.T) {
	st := newTestStore(t)
	st.MultiSet(map[string]string{
		store.KeyToken:  "tok",
		store.KeyUser:   `{"id": 1}`,
		store.KeyAvatar: "avatar-3",
	})

	m := NewManager(st, silentAPI{t})
	assert.NoError(t, m.Restore())
	assert.NoError(t, m.Logout())
	assert.Equal(t, Unauthenticated, m.State())

	for _, k := range []string{store.KeyToken, store.KeyUser, store.KeyAvatar} {
		got, _ := st.Get(k)
		assert.Equal(t, "", got)
	}
}
