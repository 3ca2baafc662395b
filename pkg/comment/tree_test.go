package comment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// chain builds a single path of nesting: c1 <- c2 <- ... <- cN.
func chain(n int) []*Comment {
	comments := make([]*Comment, 0, n)
	for i := 1; i <= n; i++ {
		c := &Comment{Id: int64(i), Body: "level"}
		if i > 1 {
			c.ParentId = int64(i - 1)
		}
		comments = append(comments, c)
	}
	return comments
}

func TestBuildTreeFlatGrouping(t *testing.T) {
	t.Run("children group under their parent in server order", func(t *testing.T) {
		flat := []*Comment{
			{Id: 1},
			{Id: 2, ParentId: 1},
			{Id: 3, ParentId: 1},
			{Id: 4},
			{Id: 5, ParentId: 2},
		}
		roots := BuildTree(flat)

		if len(roots) != 2 {
			t.Fatalf("expected 2 roots, got %d", len(roots))
		}
		assert.Equal(t, int64(1), roots[0].Id)
		assert.Equal(t, int64(4), roots[1].Id)
		assert.Equal(t, []int64{2, 3}, ids(roots[0].Replies))
		assert.Equal(t, []int64{5}, ids(roots[0].Replies[0].Replies))
	})

	t.Run("depth increments per level", func(t *testing.T) {
		roots := BuildTree(chain(4))
		c := roots[0]
		for want := 0; want < 4; want++ {
			assert.Equal(t, want, c.Depth)
			if want < 3 {
				c = c.Replies[0]
			}
		}
	})

	t.Run("orphan stays visible at top level", func(t *testing.T) {
		roots := BuildTree([]*Comment{
			{Id: 1},
			{Id: 2, ParentId: 99},
		})
		assert.Equal(t, []int64{1, 2}, ids(roots))
	})

	t.Run("already nested payload passes through", func(t *testing.T) {
		nested := []*Comment{
			{Id: 1, Replies: []*Comment{
				{Id: 2, ParentId: 1},
			}},
			{Id: 3},
		}
		roots := BuildTree(nested)
		assert.Equal(t, []int64{1, 3}, ids(roots))
		assert.Equal(t, 1, roots[0].Replies[0].Depth)
	})
}

func TestRevealDepthGate(t *testing.T) {
	// Six levels of nesting: the affordance shows at depths 0-4 and is
	// suppressed at depth 5 even though that node has a reply.
	roots := BuildTree(chain(7))
	thread := NewThread(roots)

	node := roots[0]
	for depth := 0; depth <= 5; depth++ {
		if depth < 5 {
			assert.True(t, thread.CanReveal(node), "depth %d should offer reveal", depth)
		} else {
			assert.True(t, len(node.Replies) > 0)
			assert.False(t, thread.CanReveal(node), "depth 5 must suppress reveal")
			assert.False(t, thread.Reveal(node.Id))
		}
		node = node.Replies[0]
	}
}

func TestRevealOneLevelAtATime(t *testing.T) {
	roots := BuildTree(chain(3))
	thread := NewThread(roots)

	assert.Equal(t, []int64{1}, ids(thread.Visible()))

	// Revealing the root exposes its immediate child only.
	assert.True(t, thread.Reveal(1))
	assert.Equal(t, []int64{1, 2}, ids(thread.Visible()))

	// The grandchild needs its own reveal.
	assert.True(t, thread.Reveal(2))
	assert.Equal(t, []int64{1, 2, 3}, ids(thread.Visible()))
}

func TestRevealLeafIsNoop(t *testing.T) {
	thread := NewThread(BuildTree([]*Comment{{Id: 1}}))
	assert.False(t, thread.Reveal(1))
	assert.False(t, thread.Revealed(1))
}

func TestPrepend(t *testing.T) {
	thread := NewThread(BuildTree([]*Comment{{Id: 1}, {Id: 2}}))
	thread.Prepend(&Comment{Id: 3})

	assert.Equal(t, []int64{3, 1, 2}, ids(thread.Roots()))
	assert.Equal(t, 0, thread.Roots()[0].Depth)
}

func ids(comments []*Comment) []int64 {
	out := make([]int64, 0, len(comments))
	for _, c := range comments {
		out = append(out, c.Id)
	}
	return out
}
