package store

import (
	"sync"

	"github.com/Temkum/voting-system-demo/pkg/metrics"
	"github.com/Temkum/voting-system-demo/pkg/types"
)

// PollStore is the authoritative local cache of poll entities.
//
// The server is the single source of truth per poll and always sends the
// complete object, so the merge policy is last-write-wins keyed by poll id:
// an incoming snapshot fully replaces the stored entry. The store never
// recomputes tallies; it trusts its producers to send consistent snapshots.
//
// ReplaceAll and the two Apply methods are the only mutation entry points.
// Reads hand out deep copies, so no caller can mutate a canonical entry.
type PollStore struct {
	mu    sync.RWMutex
	order []string
	polls map[string]*types.Poll
}

// NewPollStore creates an empty store.
func NewPollStore() *PollStore {
	return &PollStore{
		polls: make(map[string]*types.Poll),
	}
}

// ReplaceAll discards the current contents and installs the given polls in
// the order provided. Used after a full fetch.
func (s *PollStore) ReplaceAll(polls []types.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = make([]string, 0, len(polls))
	s.polls = make(map[string]*types.Poll, len(polls))
	for i := range polls {
		p := polls[i]
		if _, dup := s.polls[p.ID]; dup {
			continue
		}
		s.order = append(s.order, p.ID)
		s.polls[p.ID] = p.Clone()
	}
	metrics.PollsKnown.Set(float64(len(s.order)))
}

// ApplyCreated installs a poll announced by a poll-created event. Unknown
// polls are prepended (newest first, matching fetch order); a known id is
// fully replaced in place, which makes redelivery idempotent.
func (s *PollStore) ApplyCreated(poll types.Poll) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.polls[poll.ID]; !known {
		s.order = append([]string{poll.ID}, s.order...)
	}
	s.polls[poll.ID] = poll.Clone()
	metrics.PollsKnown.Set(float64(len(s.order)))
}

// ApplyUpdated replaces the stored entry for a poll-updated snapshot. An
// update for an id the store never learned to exist is silently dropped and
// ApplyUpdated returns false; such an update cannot be meaningfully
// displayed.
func (s *PollStore) ApplyUpdated(poll types.Poll) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.polls[poll.ID]; !known {
		metrics.StaleUpdatesDroppedTotal.Inc()
		return false
	}
	s.polls[poll.ID] = poll.Clone()
	return true
}

// Get returns a copy of the poll with the given id.
func (s *PollStore) Get(pollID string) (types.Poll, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.polls[pollID]
	if !ok {
		return types.Poll{}, false
	}
	return *p.Clone(), true
}

// List returns copies of all known polls in store order.
func (s *PollStore) List() []types.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Poll, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.polls[id].Clone())
	}
	return out
}

// IDs returns the ids of all known polls in store order.
func (s *PollStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of known polls.
func (s *PollStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
