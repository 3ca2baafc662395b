package comment

// Replies deeper than this render without a reveal affordance.
const maxRevealDepth = 5

// BuildTree shapes a comment payload for threaded display. Payloads that
// already nest replies pass through; flat payloads are grouped under their
// parents by parent id, preserving server order within each parent. A
// comment whose parent is missing from the payload stays visible at the
// top level. Depths are assigned either way.
func BuildTree(comments []*Comment) []*Comment {
	nested := false
	for _, c := range comments {
		if len(c.Replies) > 0 {
			nested = true
			break
		}
	}

	roots := comments
	if !nested {
		byId := make(map[int64]*Comment, len(comments))
		for _, c := range comments {
			byId[c.Id] = c
		}
		roots = make([]*Comment, 0, len(comments))
		for _, c := range comments {
			if parent, ok := byId[c.ParentId]; ok && c.ParentId != c.Id {
				parent.Replies = append(parent.Replies, c)
				continue
			}
			roots = append(roots, c)
		}
	}

	assignDepth(roots, 0)
	return roots
}

func assignDepth(nodes []*Comment, depth int) {
	for _, n := range nodes {
		n.Depth = depth
		assignDepth(n.Replies, depth+1)
	}
}

// Thread is a built comment tree plus the per-node reveal state. Replies
// are hidden until revealed, one level at a time, keyed by comment id.
type Thread struct {
	roots    []*Comment
	byId     map[int64]*Comment
	revealed map[int64]bool
}

func NewThread(roots []*Comment) *Thread {
	t := &Thread{
		roots:    roots,
		byId:     map[int64]*Comment{},
		revealed: map[int64]bool{},
	}
	t.index(roots)
	return t
}

func (t *Thread) index(nodes []*Comment) {
	for _, n := range nodes {
		t.byId[n.Id] = n
		t.index(n.Replies)
	}
}

func (t *Thread) Roots() []*Comment { return t.roots }

// CanReveal gates the "show replies" affordance: it appears only for a
// node with replies above the depth cutoff.
func (t *Thread) CanReveal(c *Comment) bool {
	return len(c.Replies) > 0 && c.Depth < maxRevealDepth
}

// Reveal exposes the immediate children of the given comment. Deeper
// descendants need their own reveal.
func (t *Thread) Reveal(commentId int64) bool {
	c, ok := t.byId[commentId]
	if !ok || !t.CanReveal(c) {
		return false
	}
	t.revealed[commentId] = true
	return true
}

func (t *Thread) Revealed(commentId int64) bool {
	return t.revealed[commentId]
}

// Visible walks the thread in display order: all roots, and below each
// revealed node its immediate children.
func (t *Thread) Visible() []*Comment {
	var out []*Comment
	var walk func(nodes []*Comment)
	walk = func(nodes []*Comment) {
		for _, n := range nodes {
			out = append(out, n)
			if t.revealed[n.Id] {
				walk(n.Replies)
			}
		}
	}
	walk(t.roots)
	return out
}

// Prepend puts a freshly created top-level comment at the head of the
// thread, the way the feed shows the newest comment first.
func (t *Thread) Prepend(c *Comment) {
	c.Depth = 0
	t.roots = append([]*Comment{c}, t.roots...)
	t.byId[c.Id] = c
}
