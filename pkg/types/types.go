package types

import (
	"time"
)

// UserSummary identifies the creator of a poll. The server treats this as an
// opaque reference; nothing in this client dereferences it beyond display.
type UserSummary struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PollOption is a single votable option within a poll. Option ids are unique
// within their poll and stable once created.
type PollOption struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Votes int    `json:"votes"`
}

// Poll is the server-authoritative poll entity. The server always sends the
// complete object, so the client never merges field-by-field.
type Poll struct {
	ID         string       `json:"_id"`
	Title      string       `json:"title"`
	Options    []PollOption `json:"options"`
	CreatedBy  UserSummary  `json:"createdBy"`
	TotalVotes int          `json:"totalVotes"`
	IsActive   bool         `json:"isActive"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

// TallyConsistent reports whether TotalVotes equals the sum of the per-option
// vote counts. Server-sourced snapshots are expected to satisfy this.
func (p *Poll) TallyConsistent() bool {
	sum := 0
	for _, opt := range p.Options {
		sum += opt.Votes
	}
	return sum == p.TotalVotes
}

// Option returns the option with the given id, if present.
func (p *Poll) Option(optionID string) (PollOption, bool) {
	for _, opt := range p.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return PollOption{}, false
}

// Clone returns a deep copy of the poll. Store reads hand out clones so
// callers can never mutate the canonical entry.
func (p *Poll) Clone() *Poll {
	cp := *p
	cp.Options = make([]PollOption, len(p.Options))
	copy(cp.Options, p.Options)
	return &cp
}

// LiveUpdate is an ephemeral display-only feed entry. Safe to lose.
type LiveUpdate struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// VoteStatus tracks the lifecycle of an in-flight optimistic vote.
type VoteStatus string

const (
	VoteStatusPending   VoteStatus = "pending"
	VoteStatusConfirmed VoteStatus = "confirmed"
	VoteStatusRejected  VoteStatus = "rejected"
)

// PendingVote records an optimistic mutation that has been applied locally but
// not yet confirmed or rejected by the server.
type PendingVote struct {
	PollID       string
	OptionID     string
	AppliedDelta int
	Status       VoteStatus
	SubmittedAt  time.Time
}
