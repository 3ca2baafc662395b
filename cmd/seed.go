package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/jaswdr/faker"

	"feedr/pkg/post"
	"feedr/pkg/voting"
)

const onePassForAll = "sdfsdfsdf"

var f = faker.New()

// seed fills the remote with fake users, posts and comments through the
// public API, so a fresh backend has something to browse.
func (a *app) seed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	nPosts := fs.Int("posts", 6, "posts per author")
	nAuthors := fs.Int("authors", 5, "fake authors to register")
	fs.Parse(args)

	// Account for experiments (not random).
	if err := a.seedAuthor(ctx, "pike", *nPosts); err != nil {
		return err
	}
	for i := 0; i < *nAuthors; i++ {
		username := strings.ToLower(f.Person().FirstName()) + fmt.Sprint(rand.Intn(1000))
		if err := a.seedAuthor(ctx, username, *nPosts); err != nil {
			return err
		}
	}
	return a.session.Logout()
}

func (a *app) seedAuthor(ctx context.Context, username string, nPosts int) error {
	email := username + "@example.com"
	_, err := a.session.Register(ctx, username, email, onePassForAll, genAvatar())
	if err != nil {
		// The author may exist from an earlier run; sign in instead.
		if _, err := a.session.Login(ctx, email, onePassForAll); err != nil {
			return err
		}
	}
	log.Println("seed: posting as", username)

	for i := 0; i < nPosts; i++ {
		created, err := a.posts.Create(ctx, genTitle(), genBody(), "")
		if err != nil {
			return err
		}
		if err := a.seedReplies(ctx, created); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) seedReplies(ctx context.Context, p *post.Post) error {
	var parentId int64
	for i := 0; i <= rand.Intn(4); i++ {
		c, err := a.comments.Add(ctx, p.Id, parentId, genText())
		if err != nil {
			return err
		}
		// Half the time keep nesting under the previous comment.
		if rand.Intn(2) == 0 {
			parentId = c.Id
		}
	}

	if rand.Intn(2) == 0 {
		dir := voting.ScoreUp
		if rand.Intn(4) == 0 {
			dir = voting.ScoreDown
		}
		if err := a.posts.Reconciler(p).Apply(ctx, dir); err != nil {
			return err
		}
	}
	return nil
}

func genAvatar() string {
	return fmt.Sprintf("avatar-%d", rand.Intn(8)+1)
}

func genTitle() string {
	return strings.Join(f.Lorem().Words(rand.Intn(5)+3), " ")
}

func genText() string {
	return f.Lorem().Paragraph(rand.Intn(3) + 2)
}

// genBody mixes in the markdown subset the composer supports.
func genBody() string {
	lines := []string{genText()}
	if rand.Intn(2) == 0 {
		lines = append(lines, "", "> "+f.Lorem().Sentence(6))
	}
	if rand.Intn(3) == 0 {
		lines = append(lines, "", "**"+f.Lorem().Sentence(3)+"**")
	}
	return strings.Join(lines, "\n")
}
