package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Temkum/voting-system-demo/pkg/apiclient"
	"github.com/Temkum/voting-system-demo/pkg/config"
	"github.com/Temkum/voting-system-demo/pkg/dispatch"
	"github.com/Temkum/voting-system-demo/pkg/eligibility"
	"github.com/Temkum/voting-system-demo/pkg/liveupdates"
	"github.com/Temkum/voting-system-demo/pkg/log"
	"github.com/Temkum/voting-system-demo/pkg/notify"
	"github.com/Temkum/voting-system-demo/pkg/rooms"
	"github.com/Temkum/voting-system-demo/pkg/socket"
	"github.com/Temkum/voting-system-demo/pkg/store"
	"github.com/Temkum/voting-system-demo/pkg/storage"
	"github.com/Temkum/voting-system-demo/pkg/types"
	"github.com/Temkum/voting-system-demo/pkg/votes"
)

// ChangeFunc observes store-affecting poll events after they are applied.
// kind is the originating event name (poll-created or poll-updated).
type ChangeFunc func(kind string, poll types.Poll)

// Session is the explicitly owned composition root of the synchronization
// core. It wires the connection manager, room registry, dispatcher, state
// store, vote coordinator, and eligibility tracker together and manages
// their shared lifecycle: New, Start, Teardown. Nothing here is a lazy
// global; callers hold the Session and inject it where needed.
type Session struct {
	cfg *config.Config

	api         *apiclient.Client
	conn        *socket.Conn
	rooms       *rooms.Registry
	dispatcher  *dispatch.Dispatcher
	store       *store.PollStore
	cache       *storage.SnapshotCache
	tracker     *eligibility.Tracker
	coordinator *votes.Coordinator
	feed        *liveupdates.Feed
	notifier    *notify.Notifier

	subs     []*dispatch.Subscription
	onChange ChangeFunc
}

// New assembles a session from configuration. No network activity happens
// until Start.
func New(cfg *config.Config) *Session {
	api := apiclient.NewClient(cfg.APIURL, cfg.AuthToken, cfg.RequestTimeout.Std())

	conn := socket.New(socket.Options{
		URL:         cfg.SocketURL,
		AuthToken:   cfg.AuthToken,
		DialTimeout: cfg.DialTimeout.Std(),
		Reconnect: socket.ReconnectPolicy{
			MaxAttempts:    cfg.Reconnect.MaxAttempts,
			InitialBackoff: cfg.Reconnect.InitialBackoff.Std(),
			MaxBackoff:     cfg.Reconnect.MaxBackoff.Std(),
		},
	})

	registry := rooms.NewRegistry(conn)
	conn.OnReconnect(registry.Resubscribe)

	st := store.NewPollStore()
	tracker := eligibility.NewTracker()

	s := &Session{
		cfg:         cfg,
		api:         api,
		conn:        conn,
		rooms:       registry,
		dispatcher:  dispatch.NewDispatcher(conn.Inbound()),
		store:       st,
		tracker:     tracker,
		coordinator: votes.NewCoordinator(st, tracker, api, cfg.RequestTimeout.Std()),
		feed:        liveupdates.NewFeed(config.DefaultLiveUpdateHistory),
		notifier:    notify.NewNotifier(config.DefaultNotificationTTL),
	}

	cache, err := storage.Open(cfg.DataDir)
	if err != nil {
		// Warm start is a convenience; run without it.
		logger := log.WithComponent("session")
		logger.Warn().Err(err).Msg("snapshot cache unavailable")
	} else {
		s.cache = cache
	}

	return s
}

// SetOnChange installs the change observer. Must be called before Start.
func (s *Session) SetOnChange(fn ChangeFunc) {
	s.onChange = fn
}

// Start brings the session up: warm-starts the store from the snapshot
// cache, registers event handlers, connects the channel, fetches server
// truth, and hydrates the eligibility tracker.
func (s *Session) Start(ctx context.Context) error {
	logger := log.WithComponent("session")

	if s.cache != nil {
		if cached, err := s.cache.LoadPolls(); err != nil {
			logger.Warn().Err(err).Msg("failed to load snapshot cache")
		} else if len(cached) > 0 {
			s.store.ReplaceAll(cached)
			logger.Info().Int("polls", len(cached)).Msg("warm-started from snapshot cache")
		}
	}

	s.subs = append(s.subs,
		s.dispatcher.Subscribe(socket.EventPollCreated, s.handlePollCreated),
		s.dispatcher.Subscribe(socket.EventPollUpdated, s.handlePollUpdated),
	)
	s.dispatcher.Start()

	if err := s.conn.Connect(ctx); err != nil {
		return fmt.Errorf("failed to establish event channel: %w", err)
	}

	if err := s.Refresh(ctx); err != nil {
		return err
	}

	s.tracker.Hydrate(ctx, s.store.IDs(), s.api)
	return nil
}

// Refresh replaces the store with a full fetch of server truth and re-saves
// the snapshot cache.
func (s *Session) Refresh(ctx context.Context) error {
	polls, err := s.api.FetchPolls(ctx)
	if err != nil {
		return fmt.Errorf("failed to load polls: %w", err)
	}
	s.store.ReplaceAll(polls)

	if s.cache != nil {
		if err := s.cache.SavePolls(polls); err != nil {
			logger := log.WithComponent("session")
			logger.Warn().Err(err).Msg("failed to save snapshot cache")
		}
	}
	return nil
}

// Teardown releases everything the session owns: handler registrations, the
// dispatcher loop, all room subscriptions, the channel itself, the voted
// set, and the snapshot cache. In-flight submissions finish on their own
// and still update the store; the store remains readable after teardown.
func (s *Session) Teardown() {
	for _, sub := range s.subs {
		sub.Cancel()
	}
	s.dispatcher.Stop()
	s.rooms.Reset()
	_ = s.conn.Close()
	s.tracker.Clear()
	if s.cache != nil {
		_ = s.cache.Close()
	}
}

// WatchPoll registers interest in a poll's live updates.
func (s *Session) WatchPoll(pollID string) {
	s.rooms.Join(pollID)
}

// UnwatchPoll withdraws one consumer's interest in a poll.
func (s *Session) UnwatchPoll(pollID string) {
	s.rooms.Leave(pollID)
}

// Vote casts the viewer's vote and surfaces the outcome as a notification.
func (s *Session) Vote(ctx context.Context, pollID, optionID string) error {
	err := s.coordinator.SubmitVote(ctx, pollID, optionID)
	switch {
	case err == nil:
		s.notifier.Success("Vote submitted! Processing...")
	case errors.Is(err, votes.ErrDuplicateVote), errors.Is(err, apiclient.ErrAlreadyVoted):
		s.notifier.Error("Already voted on this poll")
	default:
		s.notifier.Error("Failed to vote")
	}
	return err
}

// CreatePoll creates a new poll. The poll reaches the store through the
// subsequent poll-created event, not through the response.
func (s *Session) CreatePoll(ctx context.Context, title string, options []string) (*types.Poll, error) {
	valid := make([]string, 0, len(options))
	for _, opt := range options {
		if strings.TrimSpace(opt) != "" {
			valid = append(valid, opt)
		}
	}
	if strings.TrimSpace(title) == "" || len(valid) < 2 {
		s.notifier.Error("Poll needs title and at least 2 options")
		return nil, fmt.Errorf("poll needs a title and at least 2 options")
	}

	poll, err := s.api.CreatePoll(ctx, title, valid)
	if err != nil {
		s.notifier.Error("Failed to create poll")
		return nil, err
	}
	s.notifier.Success("Poll created successfully!")
	return poll, nil
}

// Polls returns the current store contents.
func (s *Session) Polls() []types.Poll {
	return s.store.List()
}

// Poll returns one poll by id.
func (s *Session) Poll(pollID string) (types.Poll, bool) {
	return s.store.Get(pollID)
}

// HasVoted reports whether the viewer has voted on the given poll.
func (s *Session) HasVoted(pollID string) bool {
	return s.tracker.HasVoted(pollID)
}

// Updates returns the live update feed, newest first.
func (s *Session) Updates() []types.LiveUpdate {
	return s.feed.List()
}

// Notifications returns the active transient notifications.
func (s *Session) Notifications() []notify.Notification {
	return s.notifier.Active()
}

// IsConnected reports channel connectivity.
func (s *Session) IsConnected() bool {
	return s.conn.IsConnected()
}

func (s *Session) handlePollCreated(poll types.Poll) {
	if !poll.TallyConsistent() {
		logger := log.WithPollID(poll.ID)
		logger.Warn().Msg("poll-created snapshot with inconsistent tally")
	}
	s.store.ApplyCreated(poll)
	s.feed.Addf("New poll created: %s", poll.Title)
	if s.onChange != nil {
		s.onChange(socket.EventPollCreated, poll)
	}
}

func (s *Session) handlePollUpdated(poll types.Poll) {
	if !s.store.ApplyUpdated(poll) {
		logger := log.WithPollID(poll.ID)
		logger.Debug().Msg("update for unknown poll dropped")
		return
	}
	s.feed.Addf("Vote registered on: %s", poll.Title)
	s.coordinator.ObserveAuthoritative(poll.ID)
	if s.onChange != nil {
		s.onChange(socket.EventPollUpdated, poll)
	}
}
