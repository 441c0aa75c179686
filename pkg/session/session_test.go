package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Temkum/voting-system-demo/pkg/config"
	"github.com/Temkum/voting-system-demo/pkg/log"
	"github.com/Temkum/voting-system-demo/pkg/socket"
	"github.com/Temkum/voting-system-demo/pkg/types"
)

func TestMain(m *testing.M) {
	log.Init(log.Config{Level: log.ErrorLevel})
	m.Run()
}

// pollServer is a minimal in-process stand-in for the poll backend: the REST
// endpoints the client uses plus the websocket event channel.
type pollServer struct {
	srv      *httptest.Server
	upgrader websocket.Upgrader

	mu         sync.Mutex
	polls      []types.Poll
	voted      map[string]bool
	rejectVote bool

	ws       chan *websocket.Conn
	received chan socket.Frame
}

func newPollServer(t *testing.T, polls []types.Poll) *pollServer {
	t.Helper()
	ps := &pollServer{
		polls:    polls,
		voted:    make(map[string]bool),
		ws:       make(chan *websocket.Conn, 4),
		received: make(chan socket.Frame, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/polls", func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		json.NewEncoder(w).Encode(ps.polls)
	})
	mux.HandleFunc("POST /api/votes/{pollID}", func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		if ps.rejectVote || ps.voted[r.PathValue("pollID")] {
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "Already voted on this poll"})
			return
		}
		ps.voted[r.PathValue("pollID")] = true
		json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	})
	mux.HandleFunc("GET /api/votes/{pollID}/check", func(w http.ResponseWriter, r *http.Request) {
		ps.mu.Lock()
		defer ps.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]bool{"hasVoted": ps.voted[r.PathValue("pollID")]})
	})
	mux.HandleFunc("/socket", func(w http.ResponseWriter, r *http.Request) {
		conn, err := ps.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.ws <- conn
		for {
			var frame socket.Frame
			if err := conn.ReadJSON(&frame); err != nil {
				return
			}
			ps.received <- frame
		}
	})

	ps.srv = httptest.NewServer(mux)
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pollServer) config(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.APIURL = ps.srv.URL
	cfg.SocketURL = strings.Replace(ps.srv.URL, "http://", "ws://", 1) + "/socket"
	cfg.DataDir = t.TempDir()
	cfg.RequestTimeout = config.Duration(2 * time.Second)
	cfg.Reconnect.InitialBackoff = config.Duration(10 * time.Millisecond)
	return cfg
}

// push sends an event frame to the connected client.
func (ps *pollServer) push(t *testing.T, event string, poll types.Poll) {
	t.Helper()
	select {
	case conn := <-ps.ws:
		data, err := json.Marshal(poll)
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(socket.Frame{Event: event, Data: data}))
		ps.ws <- conn
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket client connected")
	}
}

func (ps *pollServer) setPolls(polls []types.Poll) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.polls = polls
}

func (ps *pollServer) setRejectVote(reject bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.rejectVote = reject
}

func twoPolls() []types.Poll {
	return []types.Poll{
		{
			ID:    "p1",
			Title: "Lunch?",
			Options: []types.PollOption{
				{ID: "o1", Text: "Pizza", Votes: 2},
				{ID: "o2", Text: "Sushi", Votes: 1},
			},
			TotalVotes: 3,
		},
		{
			ID:         "p2",
			Title:      "Coffee?",
			Options:    []types.PollOption{{ID: "o1", Text: "Yes", Votes: 0}},
			TotalVotes: 0,
		},
	}
}

func startSession(t *testing.T, ps *pollServer) *Session {
	t.Helper()
	s := New(ps.config(t))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Teardown)
	return s
}

func TestStartLoadsServerTruth(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	s := startSession(t, ps)

	polls := s.Polls()
	require.Len(t, polls, 2)
	assert.Equal(t, "p1", polls[0].ID)
	assert.Equal(t, 3, polls[0].TotalVotes)
	assert.True(t, s.IsConnected())
}

func TestWatchPollEmitsJoin(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	s := startSession(t, ps)

	s.WatchPoll("p1")

	select {
	case frame := <-ps.received:
		assert.Equal(t, socket.EventJoinPoll, frame.Event)
		var pollID string
		require.NoError(t, json.Unmarshal(frame.Data, &pollID))
		assert.Equal(t, "p1", pollID)
	case <-time.After(2 * time.Second):
		t.Fatal("join frame never reached the server")
	}
}

func TestVoteConfirmed(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	s := startSession(t, ps)

	require.NoError(t, s.Vote(context.Background(), "p1", "o1"))

	// The optimistic bump is visible immediately and survives confirmation.
	poll, ok := s.Poll("p1")
	require.True(t, ok)
	assert.Equal(t, 3, poll.Options[0].Votes)
	assert.Equal(t, 4, poll.TotalVotes)
	assert.True(t, s.HasVoted("p1"))

	notes := s.Notifications()
	require.NotEmpty(t, notes)
	assert.Equal(t, "Vote submitted! Processing...", notes[0].Message)
}

func TestVoteConflictResyncsToServerTruth(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	s := startSession(t, ps)
	ps.setRejectVote(true)

	err := s.Vote(context.Background(), "p1", "o1")
	require.Error(t, err)

	// The optimistic bump must be gone: the store holds server truth again.
	poll, ok := s.Poll("p1")
	require.True(t, ok)
	assert.Equal(t, 2, poll.Options[0].Votes)
	assert.Equal(t, 3, poll.TotalVotes)

	// The server's duplicate verdict is final.
	assert.True(t, s.HasVoted("p1"))

	notes := s.Notifications()
	require.NotEmpty(t, notes)
	assert.Equal(t, "Already voted on this poll", notes[0].Message)
}

func TestDuplicateVoteRejectedLocally(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	s := startSession(t, ps)

	require.NoError(t, s.Vote(context.Background(), "p1", "o1"))
	err := s.Vote(context.Background(), "p1", "o2")
	require.Error(t, err)

	// The failed second vote left the tally untouched.
	poll, _ := s.Poll("p1")
	assert.Equal(t, 4, poll.TotalVotes)
}

func TestPollCreatedEvent(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	s := New(ps.config(t))
	changed := make(chan string, 1)
	s.SetOnChange(func(kind string, poll types.Poll) {
		changed <- poll.ID
	})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Teardown)

	ps.push(t, socket.EventPollCreated, types.Poll{
		ID:         "p3",
		Title:      "Snacks?",
		Options:    []types.PollOption{{ID: "o1", Text: "Chips"}, {ID: "o2", Text: "Fruit"}},
		TotalVotes: 0,
	})

	select {
	case id := <-changed:
		assert.Equal(t, "p3", id)
	case <-time.After(2 * time.Second):
		t.Fatal("poll-created event never applied")
	}

	// Newest first.
	polls := s.Polls()
	require.Len(t, polls, 3)
	assert.Equal(t, "p3", polls[0].ID)

	updates := s.Updates()
	require.NotEmpty(t, updates)
	assert.Equal(t, "New poll created: Snacks?", updates[0].Message)
}

func TestPollUpdatedEvent(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	s := New(ps.config(t))
	changed := make(chan types.Poll, 1)
	s.SetOnChange(func(kind string, poll types.Poll) {
		changed <- poll
	})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Teardown)

	updated := twoPolls()[0]
	updated.Options[1].Votes = 5
	updated.TotalVotes = 7
	ps.push(t, socket.EventPollUpdated, updated)

	select {
	case poll := <-changed:
		assert.Equal(t, 7, poll.TotalVotes)
	case <-time.After(2 * time.Second):
		t.Fatal("poll-updated event never applied")
	}

	poll, ok := s.Poll("p1")
	require.True(t, ok)
	assert.Equal(t, 7, poll.TotalVotes)
	assert.Equal(t, 5, poll.Options[1].Votes)

	updates := s.Updates()
	require.NotEmpty(t, updates)
	assert.Equal(t, "Vote registered on: Lunch?", updates[0].Message)
}

func TestUpdateForUnknownPollDropped(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	s := startSession(t, ps)

	ps.push(t, socket.EventPollUpdated, types.Poll{ID: "ghost", Title: "Ghost", TotalVotes: 99})

	// Give the dispatcher time to process the frame.
	time.Sleep(100 * time.Millisecond)

	_, ok := s.Poll("ghost")
	assert.False(t, ok)
	assert.Len(t, s.Polls(), 2)
}

func TestCreatePollValidation(t *testing.T) {
	ps := newPollServer(t, nil)
	s := New(ps.config(t))
	t.Cleanup(s.Teardown)

	_, err := s.CreatePoll(context.Background(), "", []string{"a", "b"})
	assert.Error(t, err)

	_, err = s.CreatePoll(context.Background(), "Title", []string{"only one"})
	assert.Error(t, err)

	// Blank options do not count toward the minimum.
	_, err = s.CreatePoll(context.Background(), "Title", []string{"a", "  "})
	assert.Error(t, err)
}

func TestWarmStartFromSnapshotCache(t *testing.T) {
	ps := newPollServer(t, twoPolls())
	cfg := ps.config(t)

	s := New(cfg)
	require.NoError(t, s.Start(context.Background()))
	s.Teardown()

	// Second session over the same data dir sees the cached snapshot before
	// any network activity.
	ps.setPolls(nil)
	s2 := New(cfg)
	t.Cleanup(s2.Teardown)
	require.NoError(t, s2.Start(context.Background()))

	// Server truth (now empty) wins after Refresh, which proves both that the
	// warm start loaded and that the fetch replaced it.
	assert.Empty(t, s2.Polls())
}
