package eligibility

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Temkum/voting-system-demo/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel})
	os.Exit(m.Run())
}

type scriptedChecker struct {
	voted map[string]bool
	fail  map[string]bool
	calls int
}

func (s *scriptedChecker) CheckVoted(ctx context.Context, pollID string) (bool, error) {
	s.calls++
	if s.fail[pollID] {
		return false, fmt.Errorf("check failed for %s", pollID)
	}
	return s.voted[pollID], nil
}

func TestMarkVotedIdempotent(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.HasVoted("p1"))
	tr.MarkVoted("p1")
	tr.MarkVoted("p1")
	assert.True(t, tr.HasVoted("p1"))
	assert.Equal(t, []string{"p1"}, tr.Voted())
}

func TestHydrateBestEffort(t *testing.T) {
	tr := NewTracker()
	checker := &scriptedChecker{
		voted: map[string]bool{"p1": true, "p3": true},
		fail:  map[string]bool{"p2": true},
	}

	tr.Hydrate(context.Background(), []string{"p1", "p2", "p3", "p4"}, checker)

	assert.Equal(t, 4, checker.calls, "a per-poll failure must not stop the sweep")
	assert.True(t, tr.HasVoted("p1"))
	assert.True(t, tr.HasVoted("p3"))
	// Failed check leaves the poll votable; the server arbitrates later.
	assert.False(t, tr.HasVoted("p2"))
	assert.False(t, tr.HasVoted("p4"))
}

func TestHydrateHonorsCancellation(t *testing.T) {
	tr := NewTracker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checker := &scriptedChecker{voted: map[string]bool{"p1": true}}
	tr.Hydrate(ctx, []string{"p1", "p2"}, checker)

	assert.Zero(t, checker.calls)
}

func TestClear(t *testing.T) {
	tr := NewTracker()
	tr.MarkVoted("p1")
	tr.MarkVoted("p2")

	tr.Clear()
	assert.Empty(t, tr.Voted())
	assert.False(t, tr.HasVoted("p1"))
}
