package liveupdates

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temkum/voting-system-demo/pkg/types"
)

// DefaultLimit is the number of entries kept when none is specified.
const DefaultLimit = 5

// Feed is a bounded, most-recent-first log of observational update
// messages. It is display-only state: entries are evicted on overflow and
// lost on restart, which is fine because nothing reads them back.
type Feed struct {
	mu      sync.Mutex
	limit   int
	updates []types.LiveUpdate
}

// NewFeed creates a feed capped at limit entries.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Feed{limit: limit}
}

// Add prepends a new update, evicting the oldest entry on overflow.
func (f *Feed) Add(message string) types.LiveUpdate {
	update := types.LiveUpdate{
		ID:        uuid.NewString(),
		Message:   message,
		Timestamp: time.Now(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append([]types.LiveUpdate{update}, f.updates...)
	if len(f.updates) > f.limit {
		f.updates = f.updates[:f.limit]
	}
	return update
}

// Addf formats and prepends a new update.
func (f *Feed) Addf(format string, args ...any) types.LiveUpdate {
	return f.Add(fmt.Sprintf(format, args...))
}

// List returns the current entries, newest first.
func (f *Feed) List() []types.LiveUpdate {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.LiveUpdate, len(f.updates))
	copy(out, f.updates)
	return out
}
