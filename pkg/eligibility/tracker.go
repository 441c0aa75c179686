package eligibility

import (
	"context"
	"sort"
	"sync"

	"github.com/Temkum/voting-system-demo/pkg/log"
)

// VotedChecker is the external per-poll "did this viewer vote" collaborator.
type VotedChecker interface {
	CheckVoted(ctx context.Context, pollID string) (bool, error)
}

// Tracker maintains the set of polls the current viewer has already voted
// on. The set is monotonic for the lifetime of a session: entries are added,
// never removed, until Clear on logout.
type Tracker struct {
	mu    sync.RWMutex
	voted map[string]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{voted: make(map[string]struct{})}
}

// HasVoted reports whether the viewer has voted on the given poll.
func (t *Tracker) HasVoted(pollID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.voted[pollID]
	return ok
}

// MarkVoted records a vote for the given poll. Idempotent.
func (t *Tracker) MarkVoted(pollID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voted[pollID] = struct{}{}
}

// Voted returns the sorted poll ids the viewer has voted on.
func (t *Tracker) Voted() []string {
	t.mu.RLock()
	ids := make([]string, 0, len(t.voted))
	for id := range t.voted {
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Clear empties the set. Called on session teardown.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.voted = make(map[string]struct{})
}

// Hydrate queries the checker for every given poll and marks the ones the
// viewer already voted on. Hydration is best effort: a failed check leaves
// that poll absent from the set (treated as not-yet-voted, with the server's
// own duplicate check as the final arbiter) and never fails the sweep.
func (t *Tracker) Hydrate(ctx context.Context, pollIDs []string, checker VotedChecker) {
	logger := log.WithComponent("eligibility")
	for _, id := range pollIDs {
		if ctx.Err() != nil {
			return
		}
		voted, err := checker.CheckVoted(ctx, id)
		if err != nil {
			logger.Debug().Err(err).Str("poll_id", id).Msg("voted check failed, skipping")
			continue
		}
		if voted {
			t.MarkVoted(id)
		}
	}
}
