package rooms

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Temkum/voting-system-demo/pkg/log"
	"github.com/Temkum/voting-system-demo/pkg/socket"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel})
	os.Exit(m.Run())
}

// fakeEmitter records emitted frames and can simulate send failures.
type fakeEmitter struct {
	mu     sync.Mutex
	sent   []string
	failed bool
}

func (f *fakeEmitter) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return fmt.Errorf("channel down")
	}
	f.sent = append(f.sent, event+":"+payload.(string))
	return nil
}

func (f *fakeEmitter) log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	copy(out, f.sent)
	return out
}

func TestJoinLeaveReferenceCounting(t *testing.T) {
	emitter := &fakeEmitter{}
	r := NewRegistry(emitter)

	// Two independent consumers of the same poll: one network join.
	r.Join("p1")
	r.Join("p1")
	assert.Equal(t, 2, r.Count("p1"))
	assert.Equal(t, []string{"join-poll:p1"}, emitter.log())

	// First leave keeps the subscription alive.
	r.Leave("p1")
	assert.Equal(t, 1, r.Count("p1"))
	assert.Equal(t, []string{"join-poll:p1"}, emitter.log())

	// Second leave sends exactly one leave signal.
	r.Leave("p1")
	assert.Equal(t, 0, r.Count("p1"))
	assert.Equal(t, []string{"join-poll:p1", "leave-poll:p1"}, emitter.log())
}

func TestLeaveAtZeroIsNoOp(t *testing.T) {
	emitter := &fakeEmitter{}
	r := NewRegistry(emitter)

	r.Leave("p1")
	assert.Empty(t, emitter.log())
	assert.Equal(t, 0, r.Count("p1"))
}

func TestResubscribeResendsExactlyLiveRooms(t *testing.T) {
	emitter := &fakeEmitter{}
	r := NewRegistry(emitter)

	r.Join("a")
	r.Join("b")
	r.Join("c")
	r.Leave("c")

	emitter.mu.Lock()
	emitter.sent = nil
	emitter.mu.Unlock()

	r.Resubscribe()

	assert.ElementsMatch(t, []string{"join-poll:a", "join-poll:b"}, emitter.log())
	// Counts are untouched by the re-assert.
	assert.Equal(t, 1, r.Count("a"))
	assert.Equal(t, 1, r.Count("b"))
}

func TestJoinKeepsCountOnSendFailure(t *testing.T) {
	emitter := &fakeEmitter{failed: true}
	r := NewRegistry(emitter)

	r.Join("p1")
	assert.Equal(t, 1, r.Count("p1"))

	// Once the channel recovers, the re-assert repairs the subscription.
	emitter.mu.Lock()
	emitter.failed = false
	emitter.mu.Unlock()
	r.Resubscribe()
	assert.Equal(t, []string{"join-poll:p1"}, emitter.log())
}

func TestResetDropsEverythingSilently(t *testing.T) {
	emitter := &fakeEmitter{}
	r := NewRegistry(emitter)

	r.Join("a")
	r.Join("b")
	r.Reset()

	assert.Empty(t, r.Rooms())
	// No leave signals: the channel itself is being released.
	assert.Equal(t, []string{"join-poll:a", "join-poll:b"}, emitter.log())
}

var _ Emitter = (*socket.Conn)(nil)
