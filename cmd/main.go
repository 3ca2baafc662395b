package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/joho/godotenv"

	"feedr/pkg/comment"
	"feedr/pkg/logger"
	"feedr/pkg/markdown"
	"feedr/pkg/post"
	"feedr/pkg/session"
	"feedr/pkg/store"
	"feedr/pkg/transport"
	"feedr/pkg/user"
	"feedr/pkg/voting"
)

type EnvConfig map[string]string

func init() {
	rand.Seed(time.Now().UnixNano())
}

// sessionTokens bridges the construction cycle: the transport needs the
// manager for tokens, the manager needs the transport for requests.
type sessionTokens struct {
	manager *session.Manager
}

func (st *sessionTokens) Token() string {
	if st.manager == nil {
		return ""
	}
	return st.manager.Token()
}

type app struct {
	session  *session.Manager
	posts    *post.Service
	comments *comment.Service
	users    *user.Service
}

func main() {
	var cfg EnvConfig = readDotenv()
	logger.Run(cfg["LOG_LEVEL"])

	st := openStore(cfg)

	tokens := &sessionTokens{}
	api := transport.New(cfg["API_URL"],
		transport.WithTokenSource(tokens),
		transport.WithUnauthorizedHook(func() {
			tokens.manager.HandleUnauthorized()
		}),
	)
	manager := session.NewManager(st, api)
	tokens.manager = manager

	if err := manager.Restore(); err != nil {
		log.Fatalln("main: can't restore session:", err)
	}

	a := &app{
		session:  manager,
		posts:    post.NewService(api, manager),
		comments: comment.NewService(api, manager),
		users:    user.NewService(api, manager),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]

	// Commands that work against the remote need the restored token
	// confirmed first; auth commands establish their own.
	switch cmd {
	case "login", "register", "logout", "whoami":
	default:
		// Key off the persisted token, not the state: a token without a
		// cached user restores as signed out but still needs settling
		// against the server.
		if manager.Token() != "" {
			if err := manager.Revalidate(ctx); err != nil {
				log.Println("main: session expired, continuing signed out")
			}
		}
	}

	var err error
	switch cmd {
	case "login":
		err = a.login(ctx, args)
	case "register":
		err = a.register(ctx, args)
	case "logout":
		err = a.session.Logout()
	case "whoami":
		err = a.whoami()
	case "feed":
		err = a.feed(ctx)
	case "post":
		err = a.createPost(ctx, args)
	case "show":
		err = a.show(ctx, args)
	case "vote":
		err = a.vote(ctx, args)
	case "comment":
		err = a.addComment(ctx, args)
	case "profile":
		err = a.profile(ctx, args)
	case "seed":
		err = a.seed(ctx, args)
	default:
		usage()
	}
	if err != nil {
		log.Fatalln("main:", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: feedr <command> [args]

  login    -email -password
  register -username -email -password [-avatar]
  logout
  whoami
  feed
  post     -title -body [-image]
  show     <post-id>
  vote     <post-id> up|down
  comment  <post-id> [-parent id] <body>
  profile  <user-id>
  seed     [-posts n]`)
	os.Exit(2)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	u, err := a.session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("signed in as %s\n", u.Username)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	username := fs.String("username", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	avatar := fs.String("avatar", "", "avatar id")
	fs.Parse(args)

	u, err := a.session.Register(ctx, *username, *email, *password, *avatar)
	if err != nil {
		return err
	}
	fmt.Printf("registered and signed in as %s\n", u.Username)
	return nil
}

func (a *app) whoami() error {
	u := a.session.User()
	if u == nil {
		fmt.Println("signed out")
		return nil
	}
	fmt.Printf("%s <%s> (id %d)\n", u.Username, u.Email, u.Id)
	return nil
}

func (a *app) feed(ctx context.Context) error {
	posts, err := a.posts.List(ctx)
	if err != nil {
		return err
	}
	for _, p := range posts {
		author := "unknown"
		if p.Author != nil {
			author = p.Author.Username
		}
		fmt.Printf("#%-4d %s\n      by %s · ▲%d ▼%d · %d comments\n",
			p.Id, p.Title, author, p.Upvotes, p.Downvotes, p.CommentCount)
	}
	return nil
}

func (a *app) createPost(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("post", flag.ExitOnError)
	title := fs.String("title", "", "post title")
	body := fs.String("body", "", "post body, markdown subset allowed")
	image := fs.String("image", "", "image URL")
	fs.Parse(args)

	created, err := a.posts.Create(ctx, *title, *body, *image)
	if err != nil {
		return err
	}
	fmt.Printf("created post #%d\n", created.Id)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	if len(args) < 1 {
		usage()
	}
	postId, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad post id %q", args[0])
	}

	p, err := a.posts.Get(ctx, postId)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n▲%d ▼%d\n\n", p.Title, p.Upvotes, p.Downvotes)
	printMarkdown(p.Body, "")

	thread, err := a.comments.List(ctx, postId)
	if err != nil {
		return err
	}
	// Open the whole thread up to the depth gate for terminal output.
	for changed := true; changed; {
		changed = false
		for _, c := range thread.Visible() {
			if thread.CanReveal(c) && thread.Reveal(c.Id) {
				changed = true
			}
		}
	}
	for _, c := range thread.Visible() {
		indent := strings.Repeat("  ", c.Depth)
		author := "unknown"
		if c.Author != nil {
			author = c.Author.Username
		}
		fmt.Printf("\n%s%s · ▲%d ▼%d\n", indent, author, c.Upvotes, c.Downvotes)
		printMarkdown(c.Body, indent)
	}
	return nil
}

func (a *app) vote(ctx context.Context, args []string) error {
	if len(args) < 2 {
		usage()
	}
	postId, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad post id %q", args[0])
	}
	var dir voting.Score
	switch args[1] {
	case "up":
		dir = voting.ScoreUp
	case "down":
		dir = voting.ScoreDown
	default:
		return fmt.Errorf("bad direction %q, want up or down", args[1])
	}

	p, err := a.posts.Get(ctx, postId)
	if err != nil {
		return err
	}
	rec := a.posts.Reconciler(p)
	if err := rec.Apply(ctx, dir); err != nil {
		return err
	}
	up, down := rec.Counts()
	fmt.Printf("#%d is now ▲%d ▼%d\n", postId, up, down)
	return nil
}

func (a *app) addComment(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("comment", flag.ExitOnError)
	parent := fs.Int64("parent", 0, "parent comment id for a reply")
	if len(args) < 1 {
		usage()
	}
	postId, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad post id %q", args[0])
	}
	fs.Parse(args[1:])
	body := strings.Join(fs.Args(), " ")

	created, err := a.comments.Add(ctx, postId, *parent, body)
	if err != nil {
		return err
	}
	fmt.Printf("comment #%d added\n", created.Id)
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	if len(args) < 1 {
		usage()
	}
	userId, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("bad user id %q", args[0])
	}

	prof, err := a.users.Profile(ctx, userId)
	if err != nil {
		return err
	}
	fmt.Printf("%s · %d followers · %d following\n", prof.User.Username, prof.FollowerCount, prof.FollowingCount)
	if prof.User.Bio != "" {
		fmt.Println(prof.User.Bio)
	}
	if a.session.State() == session.Authenticated && a.users.IsFollowing(ctx, userId) {
		fmt.Println("(you follow them)")
	}

	posts, err := a.posts.UserPosts(ctx, userId)
	if err != nil {
		return err
	}
	for _, p := range posts {
		fmt.Printf("#%-4d %s\n", p.Id, p.Title)
	}
	return nil
}

var styleCodes = map[markdown.Style]string{
	markdown.Bold:      "\x1b[1m",
	markdown.Italic:    "\x1b[3m",
	markdown.Underline: "\x1b[4m",
	markdown.Strike:    "\x1b[9m",
	markdown.Code:      "\x1b[7m",
}

func printMarkdown(body, indent string) {
	for _, line := range markdown.Render(body) {
		var b strings.Builder
		b.WriteString(indent)
		if line.Kind == markdown.Blockquote {
			b.WriteString("│ ")
		}
		for _, seg := range line.Segments {
			if code, ok := styleCodes[seg.Style]; ok {
				b.WriteString(code + seg.Text + "\x1b[0m")
			} else {
				b.WriteString(seg.Text)
			}
		}
		fmt.Println(b.String())
	}
}

func openStore(cfg EnvConfig) store.Store {
	if addr := cfg["REDIS_ADDR"]; addr != "" {
		conn, err := redis.DialURL(addr)
		if err != nil {
			log.Fatalln("main: can't connect to Redis:", err)
		}
		return store.NewRedisStore(conn)
	}

	path := cfg["STORE_PATH"]
	if path == "" {
		path = ".feedr.json"
	}
	fs, err := store.NewFileStore(path)
	if err != nil {
		log.Fatalln("main: can't open store:", err)
	}
	return fs
}

func readDotenv() EnvConfig {
	env, err := godotenv.Read()
	if err != nil {
		log.Fatal("failed reading .env file:", err)
	}
	return env
}
