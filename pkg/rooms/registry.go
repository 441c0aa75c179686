package rooms

import (
	"sort"
	"sync"

	"github.com/Temkum/voting-system-demo/pkg/log"
	"github.com/Temkum/voting-system-demo/pkg/metrics"
	"github.com/Temkum/voting-system-demo/pkg/socket"
)

// Emitter sends outbound frames over the event channel. Satisfied by
// *socket.Conn.
type Emitter interface {
	Emit(event string, payload any) error
}

// Registry tracks which poll rooms the session is interested in and with
// what reference count. Network traffic is gated on the aggregate count:
// join-poll goes out on the 0→1 transition, leave-poll on 1→0. Multiple
// independent consumers of the same poll share one server-side subscription.
type Registry struct {
	emitter Emitter

	mu     sync.Mutex
	counts map[string]int
}

// NewRegistry creates a registry that sends join/leave signals through the
// given emitter.
func NewRegistry(emitter Emitter) *Registry {
	return &Registry{
		emitter: emitter,
		counts:  make(map[string]int),
	}
}

// Join increments the reference count for pollID. On the 0→1 transition a
// join-poll signal is sent. A send failure is logged but the count is kept:
// the reconnect re-assert will repair the server-side subscription.
func (r *Registry) Join(pollID string) {
	r.mu.Lock()
	r.counts[pollID]++
	first := r.counts[pollID] == 1
	r.mu.Unlock()

	if !first {
		return
	}
	metrics.RoomsSubscribed.Inc()
	if err := r.emitter.Emit(socket.EventJoinPoll, pollID); err != nil {
		logger := log.WithPollID(pollID)
		logger.Warn().Err(err).Msg("failed to send join-poll")
	}
}

// Leave decrements the reference count for pollID. On the 1→0 transition a
// leave-poll signal is sent and the entry is removed. Leaving a poll with a
// zero count is a no-op.
func (r *Registry) Leave(pollID string) {
	r.mu.Lock()
	count, ok := r.counts[pollID]
	if !ok {
		r.mu.Unlock()
		return
	}
	count--
	if count > 0 {
		r.counts[pollID] = count
		r.mu.Unlock()
		return
	}
	delete(r.counts, pollID)
	r.mu.Unlock()

	metrics.RoomsSubscribed.Dec()
	if err := r.emitter.Emit(socket.EventLeavePoll, pollID); err != nil {
		logger := log.WithPollID(pollID)
		logger.Warn().Err(err).Msg("failed to send leave-poll")
	}
}

// Count returns the current reference count for pollID.
func (r *Registry) Count(pollID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[pollID]
}

// Rooms returns the sorted ids of all rooms with a positive count.
func (r *Registry) Rooms() []string {
	r.mu.Lock()
	ids := make([]string, 0, len(r.counts))
	for id := range r.counts {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	sort.Strings(ids)
	return ids
}

// Resubscribe re-sends a join-poll signal for every room with a positive
// count, without touching the counts. Wired to the connection manager's
// reconnect hook.
func (r *Registry) Resubscribe() {
	ids := r.Rooms()
	logger := log.WithComponent("rooms")
	logger.Info().Int("rooms", len(ids)).Msg("re-asserting room subscriptions")
	for _, id := range ids {
		if err := r.emitter.Emit(socket.EventJoinPoll, id); err != nil {
			idLogger := log.WithPollID(id)
			idLogger.Warn().Err(err).Msg("failed to re-send join-poll")
		}
	}
}

// Reset drops every entry without emitting leave signals. Used on session
// teardown, when the channel itself is being released.
func (r *Registry) Reset() {
	r.mu.Lock()
	n := len(r.counts)
	r.counts = make(map[string]int)
	r.mu.Unlock()
	metrics.RoomsSubscribed.Sub(float64(n))
}
