package post

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"feedr/pkg/user"
	"feedr/pkg/voting"
)

var ErrEmptyTitle = errors.New("post: title must not be empty")

type (
	Client interface {
		Get(ctx context.Context, path string, out interface{}) error
		Post(ctx context.Context, path string, body, out interface{}) error
		Put(ctx context.Context, path string, body, out interface{}) error
		Delete(ctx context.Context, path string, out interface{}) error
	}

	Session interface {
		RequireUser() (*user.User, error)
		RequireAuth() error
	}

	Service struct {
		api     Client
		session Session
	}
)

func NewService(api Client, session Session) *Service {
	return &Service{api: api, session: session}
}

func (s *Service) List(ctx context.Context) ([]*Post, error) {
	return s.postList(ctx, "/posts")
}

func (s *Service) UserPosts(ctx context.Context, userId int64) ([]*Post, error) {
	return s.postList(ctx, fmt.Sprintf("/users/%d/posts", userId))
}

func (s *Service) Get(ctx context.Context, postId int64) (*Post, error) {
	raw := new(rawPost)
	if err := s.api.Get(ctx, fmt.Sprintf("/posts/%d", postId), raw); err != nil {
		return nil, errors.Wrapf(err, "post: can't load post %d", postId)
	}
	return raw.normalize(), nil
}

func (s *Service) Create(ctx context.Context, title, body, image string) (*Post, error) {
	if _, err := s.session.RequireUser(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}

	// The server reads either field name; send both like the app always has.
	payload := map[string]string{
		"title":   title,
		"content": body,
		"body":    body,
		"image":   image,
	}
	created := new(rawPost)
	if err := s.api.Post(ctx, "/posts", payload, created); err != nil {
		return nil, errors.Wrap(err, "post: can't create post")
	}
	return created.normalize(), nil
}

func (s *Service) Update(ctx context.Context, postId int64, title, body string) (*Post, error) {
	if _, err := s.session.RequireUser(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}

	payload := map[string]string{
		"title":   title,
		"content": body,
		"body":    body,
	}
	updated := new(rawPost)
	if err := s.api.Put(ctx, fmt.Sprintf("/posts/%d", postId), payload, updated); err != nil {
		return nil, errors.Wrapf(err, "post: can't update post %d", postId)
	}
	return updated.normalize(), nil
}

func (s *Service) Delete(ctx context.Context, postId int64) error {
	if _, err := s.session.RequireUser(); err != nil {
		return err
	}
	if err := s.api.Delete(ctx, fmt.Sprintf("/posts/%d", postId), nil); err != nil {
		return errors.Wrapf(err, "post: can't delete post %d", postId)
	}
	return nil
}

// Reconciler builds the optimistic vote tracker for one post, seeded from
// its server counts.
func (s *Service) Reconciler(p *Post) *voting.Reconciler {
	rec := &voteRecorder{api: s.api, postId: p.Id}
	return voting.NewReconciler(p.Upvotes, p.Downvotes, rec, s.session)
}

func (s *Service) postList(ctx context.Context, path string) ([]*Post, error) {
	var raws []*rawPost
	if err := s.api.Get(ctx, path, &raws); err != nil {
		return nil, errors.Wrapf(err, "post: can't load %s", path)
	}
	posts := make([]*Post, 0, len(raws))
	for _, rp := range raws {
		posts = append(posts, rp.normalize())
	}
	return posts, nil
}

type voteRecorder struct {
	api    Client
	postId int64
}

func (vr *voteRecorder) Record(ctx context.Context, score voting.Score) error {
	return vr.api.Post(ctx, fmt.Sprintf("/posts/%d/vote", vr.postId), voting.Vote{Type: score}, nil)
}
