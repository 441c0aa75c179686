package store

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Temkum/voting-system-demo/pkg/types"
)

func makePoll(id string, votes ...int) types.Poll {
	poll := types.Poll{ID: id, Title: "poll " + id}
	total := 0
	for i, v := range votes {
		poll.Options = append(poll.Options, types.PollOption{
			ID:    "o" + string(rune('1'+i)),
			Votes: v,
		})
		total += v
	}
	poll.TotalVotes = total
	return poll
}

func TestReplaceAll(t *testing.T) {
	s := NewPollStore()
	s.ReplaceAll([]types.Poll{makePoll("p1", 1, 2), makePoll("p2", 0)})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"p1", "p2"}, s.IDs())

	// A second full fetch discards everything from the first.
	s.ReplaceAll([]types.Poll{makePoll("p3", 4)})
	assert.Equal(t, []string{"p3"}, s.IDs())
	_, ok := s.Get("p1")
	assert.False(t, ok)
}

func TestApplyCreatedPrepends(t *testing.T) {
	s := NewPollStore()
	s.ReplaceAll([]types.Poll{makePoll("p1", 0)})

	s.ApplyCreated(makePoll("p2", 0))
	assert.Equal(t, []string{"p2", "p1"}, s.IDs())
}

func TestApplyCreatedRedeliveryIdempotent(t *testing.T) {
	s := NewPollStore()
	poll := makePoll("p1", 1, 2)

	s.ApplyCreated(poll)
	first := s.List()
	s.ApplyCreated(poll)
	second := s.List()

	assert.Equal(t, first, second)
	assert.Equal(t, 1, s.Len())
}

func TestApplyUpdatedLastWriteWins(t *testing.T) {
	s := NewPollStore()
	s.ReplaceAll([]types.Poll{makePoll("p1", 0, 0)})

	updated := makePoll("p1", 3, 1)
	assert.True(t, s.ApplyUpdated(updated))

	got, ok := s.Get("p1")
	assert.True(t, ok)
	assert.Equal(t, 4, got.TotalVotes)
	assert.Equal(t, 3, got.Options[0].Votes)
	assert.True(t, got.TallyConsistent())
}

func TestApplyUpdatedUnknownIgnored(t *testing.T) {
	s := NewPollStore()
	s.ReplaceAll([]types.Poll{makePoll("p1", 0)})

	// An update for a poll the store never learned to exist is dropped.
	assert.False(t, s.ApplyUpdated(makePoll("p99", 7)))
	assert.Equal(t, []string{"p1"}, s.IDs())

	got, _ := s.Get("p1")
	assert.Equal(t, 0, got.TotalVotes)
}

func TestUpsertIdempotent(t *testing.T) {
	s := NewPollStore()
	s.ReplaceAll([]types.Poll{makePoll("p1", 1)})

	updated := makePoll("p1", 2)
	s.ApplyUpdated(updated)
	once := s.List()
	s.ApplyUpdated(updated)
	twice := s.List()

	assert.Equal(t, once, twice)
}

func TestReadsReturnCopies(t *testing.T) {
	s := NewPollStore()
	s.ReplaceAll([]types.Poll{makePoll("p1", 1)})

	got, _ := s.Get("p1")
	got.Options[0].Votes = 99
	got.TotalVotes = 99

	again, _ := s.Get("p1")
	assert.Equal(t, 1, again.TotalVotes)
	assert.Equal(t, 1, again.Options[0].Votes)
}

func TestTallyInvariantOnAcceptedSnapshots(t *testing.T) {
	// Every snapshot placed in the store by its producers satisfies
	// totalVotes == sum(option votes); verify the store preserves it
	// across all three mutation entry points.
	s := NewPollStore()
	s.ReplaceAll([]types.Poll{makePoll("p1", 1, 2), makePoll("p2", 5)})
	s.ApplyCreated(makePoll("p3", 0, 0, 0))
	s.ApplyUpdated(makePoll("p2", 6))

	for _, poll := range s.List() {
		assert.True(t, poll.TallyConsistent(), "poll %s", poll.ID)
	}
}
