package votes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Temkum/voting-system-demo/pkg/apiclient"
	"github.com/Temkum/voting-system-demo/pkg/eligibility"
	"github.com/Temkum/voting-system-demo/pkg/log"
	"github.com/Temkum/voting-system-demo/pkg/metrics"
	"github.com/Temkum/voting-system-demo/pkg/store"
	"github.com/Temkum/voting-system-demo/pkg/types"
)

var (
	// ErrUnknownPoll is returned when the poll is not in the local store.
	ErrUnknownPoll = errors.New("unknown poll")

	// ErrUnknownOption is returned when the option does not exist on the poll.
	ErrUnknownOption = errors.New("unknown option")

	// ErrDuplicateVote is returned when the local eligibility check rejects
	// the submission before any network or state effect.
	ErrDuplicateVote = errors.New("already voted on this poll")
)

// API is the slice of the REST collaborator the coordinator needs: vote
// submission plus the poll-listing fallback used to resynchronize after a
// rejected submission.
type API interface {
	SubmitVote(ctx context.Context, pollID, optionID string) error
	FetchPolls(ctx context.Context) ([]types.Poll, error)
}

// Coordinator arbitrates between a viewer's provisional vote mutation and
// the server's eventual confirmation or rejection.
//
// On acceptance the named option and the poll total are bumped locally
// before the submission is awaited, so the viewer sees the vote instantly.
// On rejection the optimistic delta is NOT surgically undone: by then an
// authoritative poll-updated snapshot may already have overwritten the bump,
// so subtracting it could corrupt server truth. Instead the coordinator
// re-fetches the full poll list and replaces the store wholesale.
type Coordinator struct {
	store   *store.PollStore
	tracker *eligibility.Tracker
	api     API
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*types.PendingVote
}

// NewCoordinator creates a coordinator. timeout bounds each submission and
// each resync fetch.
func NewCoordinator(st *store.PollStore, tracker *eligibility.Tracker, api API, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Coordinator{
		store:   st,
		tracker: tracker,
		api:     api,
		timeout: timeout,
		pending: make(map[string]*types.PendingVote),
	}
}

// SubmitVote casts the viewer's vote for an option.
//
// Preconditions are checked locally first: the poll and option must be known
// and the viewer must not have voted (or have a submission in flight) on the
// poll. On acceptance the optimistic bump is applied to the store
// synchronously, then the submission is sent and awaited. Confirmation marks
// the poll voted; any failure discards the pending record and triggers a
// full resync to ground truth.
func (c *Coordinator) SubmitVote(ctx context.Context, pollID, optionID string) error {
	poll, ok := c.store.Get(pollID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownPoll, pollID)
	}
	if _, ok := poll.Option(optionID); !ok {
		return fmt.Errorf("%w: %s on poll %s", ErrUnknownOption, optionID, pollID)
	}
	if c.tracker.HasVoted(pollID) {
		return ErrDuplicateVote
	}

	c.mu.Lock()
	if _, inFlight := c.pending[pollID]; inFlight {
		c.mu.Unlock()
		return ErrDuplicateVote
	}
	entry := &types.PendingVote{
		PollID:       pollID,
		OptionID:     optionID,
		AppliedDelta: 1,
		Status:       types.VoteStatusPending,
		SubmittedAt:  time.Now(),
	}
	c.pending[pollID] = entry
	c.mu.Unlock()

	// Optimistic bump, routed through the store's normal snapshot-replace
	// entry point so the sum invariant is preserved.
	for i := range poll.Options {
		if poll.Options[i].ID == optionID {
			poll.Options[i].Votes++
		}
	}
	poll.TotalVotes++
	c.store.ApplyUpdated(poll)

	metrics.VotesSubmittedTotal.Inc()
	logger := log.WithPollID(pollID)
	logger.Debug().Str("option_id", optionID).Msg("optimistic vote applied, submitting")

	submitCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	err := c.api.SubmitVote(submitCtx, pollID, optionID)

	if err == nil {
		c.settle(pollID, types.VoteStatusConfirmed)
		c.tracker.MarkVoted(pollID)
		metrics.VotesConfirmedTotal.Inc()
		logger.Info().Msg("vote confirmed")
		return nil
	}

	c.settle(pollID, types.VoteStatusRejected)
	metrics.VotesRejectedTotal.Inc()

	if errors.Is(err, apiclient.ErrAlreadyVoted) {
		// The server-side duplicate check outran the local one (another tab,
		// an unhydrated poll). Its verdict is final.
		c.tracker.MarkVoted(pollID)
	}

	logger.Warn().Err(err).Msg("vote rejected, resyncing to server state")
	c.resync()
	return fmt.Errorf("vote submission failed: %w", err)
}

// Pending returns the in-flight vote record for a poll, if any.
func (c *Coordinator) Pending(pollID string) (types.PendingVote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.pending[pollID]
	if !ok {
		return types.PendingVote{}, false
	}
	return *entry, true
}

// ObserveAuthoritative notes that an authoritative poll-updated snapshot
// arrived while a vote was pending. The store's last-write-wins upsert has
// already absorbed it; if the server had not yet processed this viewer's
// vote the tally is off by one locally until confirmation settles it. That
// window is accepted, so nothing is repaired here.
func (c *Coordinator) ObserveAuthoritative(pollID string) {
	c.mu.Lock()
	_, inFlight := c.pending[pollID]
	c.mu.Unlock()
	if inFlight {
		logger := log.WithPollID(pollID)
		logger.Debug().Msg("authoritative update overlapped pending vote")
	}
}

// settle finalizes and removes the pending record for a poll.
func (c *Coordinator) settle(pollID string, status types.VoteStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.pending[pollID]; ok {
		entry.Status = status
		delete(c.pending, pollID)
	}
}

// resync replaces the store with a fresh fetch of server truth. It runs on
// its own timeout rather than the caller's context: a rejected vote must
// leave the cache consistent even if the submitting consumer is being torn
// down.
func (c *Coordinator) resync() {
	metrics.ResyncsTotal.Inc()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	polls, err := c.api.FetchPolls(ctx)
	if err != nil {
		logger := log.WithComponent("votes")
		logger.Error().Err(err).Msg("resync fetch failed, local state may be stale")
		return
	}
	c.store.ReplaceAll(polls)
}
