package assistants

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

	"github.com/sethvargo/go-retry"
)

const (
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultPollInterval = 2 * time.Second
	DefaultMaxPolls     = 150

	betaHeader = "assistants=v2"
)

// Options tunes a Client. Zero values take the defaults above.
type Options struct {
	BaseURL      string
	PollInterval time.Duration
	MaxPolls     int
}

type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	maxPolls     int
	client       *http.Client
}

func NewClient(apiKey string, opts Options) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		pollInterval: opts.PollInterval,
		maxPolls:     opts.MaxPolls,
		client:       &http.Client{Timeout: 60 * time.Second},
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.pollInterval <= 0 {
		c.pollInterval = DefaultPollInterval
	}
	if c.maxPolls <= 0 {
		c.maxPolls = DefaultMaxPolls
	}
	return c
}

type thread struct {
	ID string `json:"id"`
}

type run struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	LastError *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_error"`
}

type messageList struct {
	Data []message `json:"data"`
}

type message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text *struct {
			Value string `json:"value"`
		} `json:"text,omitempty"`
	} `json:"content"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateThread opens a new conversation thread.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var t thread
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &t); err != nil {
		return "", &SessionCreationError{Err: err}
	}
	if t.ID == "" {
		return "", &SessionCreationError{Err: errors.New("response carried no thread id")}
	}
	return t.ID, nil
}

// Invoke posts input as a user message, runs the assistant on the thread,
// waits for the run to complete and returns the newest message's text.
func (c *Client) Invoke(ctx context.Context, threadID, assistantID, input string) (string, error) {
	state := StateCreated
	fail := func(err error) error {
		return &AssistantRunError{AssistantID: assistantID, ThreadID: threadID, State: state, Err: err}
	}

	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", map[string]any{
		"role":    "user",
		"content": input,
	}, nil); err != nil {
		return "", fail(fmt.Errorf("post message: %w", err))
	}
	state = StateMessagePosted

	var r run
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", map[string]any{
		"assistant_id": assistantID,
	}, &r); err != nil {
		return "", fail(fmt.Errorf("start run: %w", err))
	}
	state = StateRunStarted

	if err := c.awaitRun(ctx, threadID, &r); err != nil {
		state = StateRunPolling
		return "", fail(err)
	}
	state = StateRunCompleted

	text, err := c.latestMessage(ctx, threadID)
	if err != nil {
		return "", fail(err)
	}
	return text, nil
}

var errRunPending = errors.New("run not finished")

// awaitRun polls until the run completes. The status from run creation is
// checked first; each later check follows a pollInterval sleep, and at most
// maxPolls status requests are made.
func (c *Client) awaitRun(ctx context.Context, threadID string, r *run) error {
	first := true
	backoff := retry.WithMaxRetries(uint64(c.maxPolls), retry.NewConstant(c.pollInterval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if !first {
			if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+r.ID, nil, r); err != nil {
				return fmt.Errorf("poll run: %w", err)
			}
		}
		first = false
		return checkStatus(r)
	})
	if errors.Is(err, errRunPending) {
		return fmt.Errorf("run %s not completed after %d polls: %w", r.ID, c.maxPolls, err)
	}
	return err
}

func checkStatus(r *run) error {
	switch r.Status {
	case "completed":
		return nil
	case "failed", "cancelled", "expired", "incomplete", "requires_action":
		if r.LastError != nil && r.LastError.Message != "" {
			return fmt.Errorf("run %s ended with status %s: %s", r.ID, r.Status, r.LastError.Message)
		}
		return fmt.Errorf("run %s ended with status %s", r.ID, r.Status)
	default:
		// queued, in_progress, cancelling, or a missing status
		return retry.RetryableError(fmt.Errorf("%w: status %q", errRunPending, r.Status))
	}
}

// latestMessage lists the thread oldest-first and returns the text of the
// last element.
func (c *Client) latestMessage(ctx context.Context, threadID string) (string, error) {
	var list messageList
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages?order=asc&limit=100", nil, &list); err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	if len(list.Data) == 0 {
		return "", errors.New("list messages: thread has no messages")
	}

	last := list.Data[len(list.Data)-1]
	var parts []string
	for _, part := range last.Content {
		if part.Type == "text" && part.Text != nil {
			parts = append(parts, part.Text.Value)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("message %s has no text content", last.ID)
	}
	return strings.Join(parts, "\n"), nil
}

// do sends one API request. A nil body sends no payload; a nil out discards
// the response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", betaHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			apiErr.Type = errResp.Error.Type
			apiErr.Message = errResp.Error.Message
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
