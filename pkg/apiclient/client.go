package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Temkum/voting-system-demo/pkg/metrics"
	"github.com/Temkum/voting-system-demo/pkg/types"
)

// ErrAlreadyVoted is returned by SubmitVote when the server rejects a
// duplicate vote. The server-side check is authoritative and can race the
// local eligibility check under concurrent sessions.
var ErrAlreadyVoted = errors.New("already voted on this poll")

// Client wraps the poll server's REST API for the synchronization core.
type Client struct {
	baseURL    string
	authToken  string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a REST client. Every call carries a timeout context
// derived from the configured request timeout on top of the caller's
// context.
func NewClient(baseURL, authToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// errorPayload is the server's error envelope.
type errorPayload struct {
	Error string `json:"error"`
}

// FetchPolls returns all polls known to the server, newest first.
func (c *Client) FetchPolls(ctx context.Context) ([]types.Poll, error) {
	timer := metrics.NewTimer(metrics.APIRequestDuration.WithLabelValues("fetch_polls"))
	defer timer.ObserveDuration()

	var polls []types.Poll
	if err := c.do(ctx, http.MethodGet, "/api/polls", nil, &polls); err != nil {
		return nil, fmt.Errorf("failed to fetch polls: %w", err)
	}
	return polls, nil
}

// CreatePoll creates a new poll and returns the server's copy. The
// corresponding poll-created event will follow on the channel.
func (c *Client) CreatePoll(ctx context.Context, title string, options []string) (*types.Poll, error) {
	timer := metrics.NewTimer(metrics.APIRequestDuration.WithLabelValues("create_poll"))
	defer timer.ObserveDuration()

	body := map[string]any{
		"title":   title,
		"options": options,
	}
	var poll types.Poll
	if err := c.do(ctx, http.MethodPost, "/api/polls", body, &poll); err != nil {
		return nil, fmt.Errorf("failed to create poll: %w", err)
	}
	return &poll, nil
}

// SubmitVote submits a vote for an option. A duplicate-vote conflict is
// reported as ErrAlreadyVoted.
func (c *Client) SubmitVote(ctx context.Context, pollID, optionID string) error {
	timer := metrics.NewTimer(metrics.APIRequestDuration.WithLabelValues("submit_vote"))
	defer timer.ObserveDuration()

	body := map[string]any{"optionId": optionID}
	if err := c.do(ctx, http.MethodPost, "/api/votes/"+pollID, body, nil); err != nil {
		return fmt.Errorf("failed to submit vote: %w", err)
	}
	return nil
}

// CheckVoted reports whether the current viewer has already voted on the
// given poll.
func (c *Client) CheckVoted(ctx context.Context, pollID string) (bool, error) {
	timer := metrics.NewTimer(metrics.APIRequestDuration.WithLabelValues("check_voted"))
	defer timer.ObserveDuration()

	var result struct {
		HasVoted bool `json:"hasVoted"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/votes/"+pollID+"/check", nil, &result); err != nil {
		return false, fmt.Errorf("failed to check vote status: %w", err)
	}
	return result.HasVoted, nil
}

// do performs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// decodeError maps an error response to a sentinel where one exists.
func (c *Client) decodeError(resp *http.Response) error {
	var payload errorPayload
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(data, &payload)

	if resp.StatusCode == http.StatusConflict ||
		strings.Contains(strings.ToLower(payload.Error), "already voted") {
		return ErrAlreadyVoted
	}
	if payload.Error != "" {
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("server error (%d)", resp.StatusCode)
}
