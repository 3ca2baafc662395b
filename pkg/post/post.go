package post

import (
	"time"

	"feedr/pkg/user"
)

type Post struct {
	Id           int64      `json:"id"`
	AuthorId     int64      `json:"author_id"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Image        string     `json:"image,omitempty"`
	Upvotes      int        `json:"upvotes"`
	Downvotes    int        `json:"downvotes"`
	CommentCount int        `json:"nr_of_comments"`
	Author       *user.User `json:"user,omitempty"`
	Created      time.Time  `json:"created_at"`
	Updated      time.Time  `json:"updated_at,omitempty"`
}

// rawPost is a post as the server delivers it, aliases and all: the text
// arrives as content or body, the comment tally as comments or
// nr_of_comments, the owner as user_id or author_id. normalize is the one
// place those fallbacks live.
type rawPost struct {
	Id           int64     `json:"id"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Body         string    `json:"body"`
	Image        string    `json:"image"`
	UserId       int64     `json:"user_id"`
	AuthorId     int64     `json:"author_id"`
	User         *user.Raw `json:"user"`
	Upvotes      int       `json:"upvotes"`
	Downvotes    int       `json:"downvotes"`
	Comments     *int      `json:"comments"`
	NrOfComments *int      `json:"nr_of_comments"`
	CreatedAt    string    `json:"created_at"`
	UpdatedAt    string    `json:"updated_at"`
}

func (rp *rawPost) normalize() *Post {
	p := &Post{
		Id:        rp.Id,
		AuthorId:  rp.AuthorId,
		Title:     rp.Title,
		Body:      rp.Content,
		Image:     rp.Image,
		Upvotes:   rp.Upvotes,
		Downvotes: rp.Downvotes,
		Author:    rp.User.Normalize(),
	}
	if p.AuthorId == 0 {
		p.AuthorId = rp.UserId
	}
	if p.Body == "" {
		p.Body = rp.Body
	}
	switch {
	case rp.NrOfComments != nil:
		p.CommentCount = *rp.NrOfComments
	case rp.Comments != nil:
		p.CommentCount = *rp.Comments
	}
	if created, err := time.Parse(time.RFC3339, rp.CreatedAt); err == nil {
		p.Created = created
	}
	if updated, err := time.Parse(time.RFC3339, rp.UpdatedAt); err == nil {
		p.Updated = updated
	}
	return p
}

// OwnedBy reports whether the viewer may see edit/delete affordances.
// This is presentation only; the server stays the authority.
func (p *Post) OwnedBy(u *user.User) bool {
	return u != nil && p.AuthorId == u.Id
}
