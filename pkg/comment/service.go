package comment

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"feedr/pkg/user"
	"feedr/pkg/voting"
)

var ErrEmptyBody = errors.New("comment: body must not be empty")

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

// List fetches a post's comments and shapes them into a thread.
func (s *Service) List(ctx context.Context, postId int64) (*Thread, error) {
	var raws []*rawComment
	if err := s.api.Get(ctx, fmt.Sprintf("/posts/%d/comments", postId), &raws); err != nil {
		return nil, errors.Wrapf(err, "comment: can't load comments for post %d", postId)
	}
	return NewThread(BuildTree(normalizeAll(raws))), nil
}

// Add creates a comment on a post. A zero parentId makes a top-level
// comment; otherwise the new comment is threaded under that parent. The
// local thread is only updated after the server confirms.
func (s *Service) Add(ctx context.Context, postId, parentId int64, body string) (*Comment, error) {
	if _, err := s.session.RequireUser(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	payload := map[string]interface{}{
		"content": body,
		"body":    body,
	}
	if parentId != 0 {
		payload["parent_id"] = parentId
	}

	created := new(rawComment)
	if err := s.api.Post(ctx, fmt.Sprintf("/posts/%d/comments", postId), payload, created); err != nil {
		return nil, errors.Wrapf(err, "comment: can't add comment to post %d", postId)
	}
	return created.normalize(), nil
}

func (s *Service) Update(ctx context.Context, commentId int64, body string) (*Comment, error) {
	if _, err := s.session.RequireUser(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	updated := new(rawComment)
	err := s.api.Put(ctx, fmt.Sprintf("/comments/%d", commentId), map[string]string{"body": body}, updated)
	if err != nil {
		return nil, errors.Wrapf(err, "comment: can't update comment %d", commentId)
	}
	return updated.normalize(), nil
}

func (s *Service) Delete(ctx context.Context, commentId int64) error {
	if _, err := s.session.RequireUser(); err != nil {
		return err
	}
	if err := s.api.Delete(ctx, fmt.Sprintf("/comments/%d", commentId), nil); err != nil {
		return errors.Wrapf(err, "comment: can't delete comment %d", commentId)
	}
	return nil
}

// Reconciler builds the optimistic vote tracker for one comment, seeded
// from its server counts.
func (s *Service) Reconciler(c *Comment) *voting.Reconciler {
	rec := &voteRecorder{api: s.api, commentId: c.Id}
	return voting.NewReconciler(c.Upvotes, c.Downvotes, rec, s.session)
}

type voteRecorder struct {
	api       Client
	commentId int64
}

func (vr *voteRecorder) Record(ctx context.Context, score voting.Score) error {
	path := fmt.Sprintf("/comments/%d/upvote", vr.commentId)
	if score == voting.ScoreDown {
		path = fmt.Sprintf("/comments/%d/downvote", vr.commentId)
	}
	return vr.api.Post(ctx, path, struct{}{}, nil)
}
