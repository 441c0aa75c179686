package dispatch

import (
	"encoding/json"
	"sync"

	"github.com/Temkum/voting-system-demo/pkg/log"
	"github.com/Temkum/voting-system-demo/pkg/metrics"
	"github.com/Temkum/voting-system-demo/pkg/socket"
	"github.com/Temkum/voting-system-demo/pkg/types"
)

// Handler receives the decoded poll payload of a server-pushed event.
type Handler func(poll types.Poll)

// Subscription is a disposable handle for a registered handler. Cancel is
// safe to call any number of times and after the dispatcher has stopped;
// the cleanup effect runs at most once.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Cancel removes the handler registration.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

// Dispatcher fans server-pushed frames out to handlers registered per event
// kind. It performs no deduplication, no reordering, and no business logic;
// merge policy lives in the store.
type Dispatcher struct {
	frames <-chan socket.Frame

	mu       sync.Mutex
	nextID   int
	handlers map[string]map[int]Handler

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewDispatcher creates a dispatcher consuming the given inbound frame
// channel.
func NewDispatcher(frames <-chan socket.Frame) *Dispatcher {
	return &Dispatcher{
		frames:   frames,
		handlers: make(map[string]map[int]Handler),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the fan-out loop.
func (d *Dispatcher) Start() {
	go d.run()
}

// Stop halts the fan-out loop. Registered subscriptions remain cancelable.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// Subscribe registers a handler for the given event kind and returns its
// disposable handle.
func (d *Dispatcher) Subscribe(kind string, h Handler) *Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	id := d.nextID
	if d.handlers[kind] == nil {
		d.handlers[kind] = make(map[int]Handler)
	}
	d.handlers[kind][id] = h

	return &Subscription{cancel: func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers[kind], id)
	}}
}

func (d *Dispatcher) run() {
	for {
		select {
		case frame := <-d.frames:
			d.dispatch(frame)
		case <-d.stopCh:
			return
		}
	}
}

func (d *Dispatcher) dispatch(frame socket.Frame) {
	metrics.EventsReceivedTotal.WithLabelValues(frame.Event).Inc()

	d.mu.Lock()
	registered := len(d.handlers[frame.Event]) > 0
	d.mu.Unlock()
	logger := log.WithComponent("dispatch")
	if !registered {
		logger.Debug().
			Str("event", frame.Event).
			Msg("no handlers for event")
		return
	}

	var poll types.Poll
	if err := json.Unmarshal(frame.Data, &poll); err != nil {
		logger.Warn().
			Err(err).
			Str("event", frame.Event).
			Msg("malformed event payload dropped")
		return
	}

	for _, h := range d.snapshot(frame.Event) {
		h(poll)
	}
}

// snapshot copies the handler list so handlers may subscribe or cancel from
// within a callback without deadlocking.
func (d *Dispatcher) snapshot(kind string) []Handler {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Handler, 0, len(d.handlers[kind]))
	for _, h := range d.handlers[kind] {
		out = append(out, h)
	}
	return out
}
