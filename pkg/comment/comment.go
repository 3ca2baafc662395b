package comment

import (
	"time"

	"feedr/pkg/user"
)

type Comment struct {
	Id        int64      `json:"id"`
	PostId    int64      `json:"post_id"`
	AuthorId  int64      `json:"author_id"`
	ParentId  int64      `json:"parent_id,omitempty"`
	Body      string     `json:"body"`
	Upvotes   int        `json:"upvotes"`
	Downvotes int        `json:"downvotes"`
	Author    *user.User `json:"user,omitempty"`
	Created   time.Time  `json:"created_at"`

	// Depth is assigned by BuildTree: 0 for top level, +1 per nesting level.
	Depth   int        `json:"-"`
	Replies []*Comment `json:"replies,omitempty"`
}

// rawComment is a comment as the server delivers it. The text arrives as
// content, body or comment depending on the endpoint; the author object
// carries its own aliases. One normalize call flattens all of it.
type rawComment struct {
	Id        int64         `json:"id"`
	PostId    int64         `json:"post_id"`
	UserId    int64         `json:"user_id"`
	ParentId  *int64        `json:"parent_id"`
	Content   string        `json:"content"`
	Body      string        `json:"body"`
	Text      string        `json:"comment"`
	Upvotes   int           `json:"upvotes"`
	Downvotes int           `json:"downvotes"`
	User      *user.Raw     `json:"user"`
	CreatedAt string        `json:"created_at"`
	Replies   []*rawComment `json:"replies"`
}

func (rc *rawComment) normalize() *Comment {
	c := &Comment{
		Id:        rc.Id,
		PostId:    rc.PostId,
		AuthorId:  rc.UserId,
		Body:      rc.Content,
		Upvotes:   rc.Upvotes,
		Downvotes: rc.Downvotes,
		Author:    rc.User.Normalize(),
	}
	if rc.ParentId != nil {
		c.ParentId = *rc.ParentId
	}
	if c.Body == "" {
		c.Body = rc.Body
	}
	if c.Body == "" {
		c.Body = rc.Text
	}
	if created, err := time.Parse(time.RFC3339, rc.CreatedAt); err == nil {
		c.Created = created
	}
	for _, reply := range rc.Replies {
		c.Replies = append(c.Replies, reply.normalize())
	}
	return c
}

func normalizeAll(raws []*rawComment) []*Comment {
	comments := make([]*Comment, 0, len(raws))
	for _, rc := range raws {
		comments = append(comments, rc.normalize())
	}
	return comments
}
