package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL matches the dashboard's 3 second auto-dismiss.
const DefaultTTL = 3 * time.Second

// Kind classifies a notification for display.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a transient, auto-dismissing user-visible message. Only
// eligibility conflicts and unrecoverable submission failures travel this
// path; transport and hydration issues are handled internally.
type Notification struct {
	ID        string
	Kind      Kind
	Message   string
	CreatedAt time.Time
}

// Notifier holds active notifications until their TTL expires.
type Notifier struct {
	mu    sync.Mutex
	cache *gocache.Cache
}

// NewNotifier creates a notifier whose entries auto-dismiss after ttl.
func NewNotifier(ttl time.Duration) *Notifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Notifier{
		cache: gocache.New(ttl, ttl),
	}
}

// Success pushes a success notification.
func (n *Notifier) Success(message string) Notification {
	return n.push(KindSuccess, message)
}

// Error pushes an error notification.
func (n *Notifier) Error(message string) Notification {
	return n.push(KindError, message)
}

func (n *Notifier) push(kind Kind, message string) Notification {
	notification := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		CreatedAt: time.Now(),
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.cache.Set(notification.ID, notification, gocache.DefaultExpiration)
	return notification
}

// Active returns the not-yet-dismissed notifications, newest first.
func (n *Notifier) Active() []Notification {
	n.mu.Lock()
	items := n.cache.Items()
	n.mu.Unlock()

	out := make([]Notification, 0, len(items))
	for _, item := range items {
		out = append(out, item.Object.(Notification))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
