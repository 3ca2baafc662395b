package user

import (
	"context"
	"fmt"
	"net/url"

	"github.com/pkg/errors"
)

type (
	Client interface {
		Get(ctx context.Context, path string, out interface{}) error
		Post(ctx context.Context, path string, body, out interface{}) error
		Put(ctx context.Context, path string, body, out interface{}) error
		Delete(ctx context.Context, path string, out interface{}) error
	}

	Session interface {
		RequireUser() (*User, error)
	}

	Service struct {
		api     Client
		session Session
	}
)

// Profile is a user together with their follow graph counts.
type Profile struct {
	User           *User `json:"user"`
	FollowerCount  int   `json:"follower_count"`
	FollowingCount int   `json:"following_count"`
}

type UpdateData struct {
	Username string `json:"username,omitempty"`
	Bio      string `json:"bio,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

func NewService(api Client, session Session) *Service {
	return &Service{api: api, session: session}
}

func (s *Service) Profile(ctx context.Context, userId int64) (*Profile, error) {
	profile := new(Profile)
	if err := s.api.Get(ctx, fmt.Sprintf("/users/%d", userId), profile); err != nil {
		return nil, errors.Wrapf(err, "user: can't load profile %d", userId)
	}
	return profile, nil
}

func (s *Service) Update(ctx context.Context, userId int64, data UpdateData) (*User, error) {
	if _, err := s.session.RequireUser(); err != nil {
		return nil, err
	}
	updated := new(User)
	if err := s.api.Put(ctx, fmt.Sprintf("/users/%d", userId), data, updated); err != nil {
		return nil, errors.Wrapf(err, "user: can't update profile %d", userId)
	}
	return updated, nil
}

func (s *Service) Follow(ctx context.Context, userId int64) error {
	if _, err := s.session.RequireUser(); err != nil {
		return err
	}
	if err := s.api.Post(ctx, fmt.Sprintf("/users/%d/follow", userId), nil, nil); err != nil {
		return errors.Wrapf(err, "user: can't follow %d", userId)
	}
	return nil
}

func (s *Service) Unfollow(ctx context.Context, userId int64) error {
	if _, err := s.session.RequireUser(); err != nil {
		return err
	}
	if err := s.api.Delete(ctx, fmt.Sprintf("/users/%d/follow", userId), nil); err != nil {
		return errors.Wrapf(err, "user: can't unfollow %d", userId)
	}
	return nil
}

func (s *Service) Followers(ctx context.Context, userId int64) ([]*User, error) {
	return s.userList(ctx, fmt.Sprintf("/users/%d/followers", userId))
}

func (s *Service) Following(ctx context.Context, userId int64) ([]*User, error) {
	return s.userList(ctx, fmt.Sprintf("/users/%d/following", userId))
}

func (s *Service) Search(ctx context.Context, query string) ([]*User, error) {
	return s.userList(ctx, "/users/search?query="+url.QueryEscape(query))
}

// IsFollowing answers false on any failure; the affordance just hides.
func (s *Service) IsFollowing(ctx context.Context, userId int64) bool {
	var status struct {
		Following bool `json:"following"`
	}
	if err := s.api.Get(ctx, fmt.Sprintf("/users/%d/following-status", userId), &status); err != nil {
		return false
	}
	return status.Following
}

func (s *Service) userList(ctx context.Context, path string) ([]*User, error) {
	var raws []*Raw
	if err := s.api.Get(ctx, path, &raws); err != nil {
		return nil, errors.Wrapf(err, "user: can't load %s", path)
	}
	users := make([]*User, 0, len(raws))
	for _, r := range raws {
		users = append(users, r.Normalize())
	}
	return users, nil
}
