package hermes

import "time"

const (
	SubjectStageCompleted    = "scribe.stage.completed"
	SubjectPipelineCompleted = "scribe.pipeline.completed"
	SubjectPipelineFailed    = "scribe.pipeline.failed"
	SubjectRegistered        = "scribe.agent.registered"
)

// StageCompleted is emitted after each stage's output is produced.
type StageCompleted struct {
	RunID       string    `json:"run_id"`
	ThreadID    string    `json:"thread_id"`
	UserID      string    `json:"user_id"`
	Stage       string    `json:"stage"`
	Collection  string    `json:"collection"`
	AssistantID string    `json:"assistant_id"`
	ContentLen  int       `json:"content_len"`
	ProducedAt  time.Time `json:"produced_at"`
}

// PipelineFinished is emitted once per execution, on either subject.
type PipelineFinished struct {
	RunID      string    `json:"run_id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	UserID     string    `json:"user_id"`
	Stages     []string  `json:"stages"`
	FailedAt   string    `json:"failed_at,omitempty"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}
