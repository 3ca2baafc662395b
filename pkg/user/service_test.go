package user

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"feedr/pkg/transport"
)

type fakeSession struct{ err error }

func (f fakeSession) RequireUser() (*User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &User{Id: 1, Username: "pike"}, nil
}

func TestNormalizeAliases(t *testing.T) {
	t.Run("name and image fill the canonical fields", func(t *testing.T) {
		u := (&Raw{Id: 2, Name: "ada", Image: "a.jpg"}).Normalize()
		assert.Equal(t, "ada", u.Username)
		assert.Equal(t, "a.jpg", u.Avatar)
	})

	t.Run("canonical fields win over aliases", func(t *testing.T) {
		u := (&Raw{Id: 2, Username: "ada", Name: "ignored", Avatar: "a.jpg", Image: "ignored.jpg"}).Normalize()
		assert.Equal(t, "ada", u.Username)
		assert.Equal(t, "a.jpg", u.Avatar)
	})

	t.Run("nil raw stays nil", func(t *testing.T) {
		var r *Raw
		assert.Nil(t, r.Normalize())
	})
}

func TestProfileAndSearch(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/users/2", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"user": {"id": 2, "username": "ada"}, "follower_count": 3, "following_count": 1}`))
	}).Methods("GET")
	r.HandleFunc("/users/search", func(w http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "ada lovelace", req.URL.Query().Get("query"))
		w.Write([]byte(`[{"id": 2, "name": "ada"}]`))
	}).Methods("GET")
	srv := httptest.NewServer(r)
	defer srv.Close()

	svc := NewService(transport.New(srv.URL), fakeSession{})
	ctx := context.Background()

	profile, err := svc.Profile(ctx, 2)
	assert.NoError(t, err)
	assert.Equal(t, "ada", profile.User.Username)
	assert.Equal(t, 3, profile.FollowerCount)

	found, err := svc.Search(ctx, "ada lovelace")
	assert.NoError(t, err)
	if len(found) != 1 {
		t.Fatalf("expected 1 result, got %d", len(found))
	}
	assert.Equal(t, "ada", found[0].Username)
}

func TestFollowGating(t *testing.T) {
	gateErr := assert.AnError
	svc := NewService(nil, fakeSession{err: gateErr})

	assert.ErrorIs(t, svc.Follow(context.Background(), 2), gateErr)
	assert.ErrorIs(t, svc.Unfollow(context.Background(), 2), gateErr)
}

func TestIsFollowing(t *testing.T) {
	r := mux.NewRouter()
	r.HandleFunc("/users/2/following-status", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"following": true}`))
	}).Methods("GET")
	srv := httptest.NewServer(r)
	defer srv.Close()

	svc := NewService(transport.New(srv.URL), fakeSession{})
	assert.True(t, svc.IsFollowing(context.Background(), 2))

	// Any failure just answers false.
	broken := NewService(transport.New("http://127.0.0.1:1"), fakeSession{})
	assert.False(t, broken.IsFollowing(context.Background(), 2))
}
