package assistants

import "fmt"

// RunState is how far an invocation got before it stopped.
type RunState string

const (
	StateCreated       RunState = "created"
	StateMessagePosted RunState = "message_posted"
	StateRunStarted    RunState = "run_started"
	StateRunPolling    RunState = "run_polling"
	StateRunCompleted  RunState = "run_completed"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// SessionCreationError means a thread could not be opened.
type SessionCreationError struct {
	Err error
}

func (e *SessionCreationError) Error() string {
	return fmt.Sprintf("failed to create a new thread: %v", e.Err)
}

func (e *SessionCreationError) Unwrap() error { return e.Err }

// AssistantRunError means an invocation failed. State is the last state
// reached before the failure.
type AssistantRunError struct {
	AssistantID string
	ThreadID    string
	State       RunState
	Err         error
}

func (e *AssistantRunError) Error() string {
	return fmt.Sprintf("failed to execute assistant (%s) at %s: %v", e.AssistantID, e.State, e.Err)
}

func (e *AssistantRunError) Unwrap() error { return e.Err }
