package voting

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type (
	// Score is the wire encoding of a vote direction.
	Score int

	// Vote is the request body for recording a vote.
	Vote struct {
		Type Score `json:"vote_type"`
	}
)

const (
	ScoreUp   Score = 1
	ScoreNone Score = 0
	ScoreDown Score = -1
)

var ErrBadDirection = errors.New("voting: direction must be up or down")

type (
	// Recorder sends one vote to the remote content store.
	Recorder interface {
		Record(ctx context.Context, score Score) error
	}

	// Gate rejects mutations while the viewer is signed out.
	Gate interface {
		RequireAuth() error
	}
)

// Reconciler tracks the viewer's optimistic vote on a single item against
// the last server-confirmed baseline. The displayed counts move before the
// request is issued; a failed request resets everything to the baseline,
// never to a partial value.
type Reconciler struct {
	mu sync.Mutex

	state    Score
	up, down int
	baseUp   int
	baseDown int

	recorder Recorder
	gate     Gate
}

func NewReconciler(upvotes, downvotes int, recorder Recorder, gate Gate) *Reconciler {
	return &Reconciler{
		state:    ScoreNone,
		up:       upvotes,
		down:     downvotes,
		baseUp:   upvotes,
		baseDown: downvotes,
		recorder: recorder,
		gate:     gate,
	}
}

// Apply runs one transition of the vote state machine:
//
//	state == dir   -> toggle off: counts[dir]--, state = none
//	state == none  -> fresh vote: counts[dir]++, state = dir
//	otherwise      -> switch: counts[old]--, counts[dir]++, state = dir
//
// The transition is applied locally before the recording request is issued.
// When the request fails the reconciler discards the optimistic delta and
// resets to (none, baseline counts). Concurrent applies are not queued; a
// failure can discard a still-in-flight second vote, and that is accepted.
func (r *Reconciler) Apply(ctx context.Context, dir Score) error {
	if dir != ScoreUp && dir != ScoreDown {
		return ErrBadDirection
	}
	if err := r.gate.RequireAuth(); err != nil {
		return err
	}

	r.mu.Lock()
	switch {
	case r.state == dir:
		r.bump(dir, -1)
		r.state = ScoreNone
	case r.state == ScoreNone:
		r.bump(dir, +1)
		r.state = dir
	default:
		r.bump(r.state, -1)
		r.bump(dir, +1)
		r.state = dir
	}
	r.mu.Unlock()

	if err := r.recorder.Record(ctx, dir); err != nil {
		r.mu.Lock()
		r.state = ScoreNone
		r.up = r.baseUp
		r.down = r.baseDown
		r.mu.Unlock()
		return errors.Wrap(err, "voting: recording vote failed")
	}

	r.mu.Lock()
	r.baseUp = r.up
	r.baseDown = r.down
	r.mu.Unlock()
	return nil
}

// Callers must hold r.mu.
func (r *Reconciler) bump(dir Score, delta int) {
	if dir == ScoreUp {
		r.up += delta
	} else {
		r.down += delta
	}
}

// SetBaseline adopts freshly fetched server counts as the new confirmed
// state and drops any local delta.
func (r *Reconciler) SetBaseline(upvotes, downvotes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.up = upvotes
	r.down = downvotes
	r.baseUp = upvotes
	r.baseDown = downvotes
}

func (r *Reconciler) State() Score {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Counts returns the displayed (optimistic) upvote and downvote tallies.
func (r *Reconciler) Counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.up, r.down
}
