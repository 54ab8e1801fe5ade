package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/hermes"
	"github.com/google/uuid"
)

// ErrStageUnavailable is returned when a requested stage has no assistant.
var ErrStageUnavailable = errors.New("stage has no assistant configured")

type Conversation interface {
	CreateThread(ctx context.Context) (string, error)
	Invoke(ctx context.Context, threadID, assistantID, input string) (string, error)
}

type History interface {
	GetLatest(ctx context.Context, userID, collection string) string
	Save(ctx context.Context, userID, collection, content string)
}

type Publisher interface {
	Publish(subject string, data any) error
}

type Request struct {
	UserID               string
	BrainDump            string
	TriggerBrandAnalysis bool
}

type StageResult struct {
	Name       string
	Collection string
	Content    string
	ProducedAt time.Time
}

type Result struct {
	RunID    string
	ThreadID string
	Stages   []StageResult
}

// Output returns the content of the named stage, or nil if it did not run.
func (r *Result) Output(name string) *string {
	for i := range r.Stages {
		if r.Stages[i].Name == name {
			return &r.Stages[i].Content
		}
	}
	return nil
}

// Pipeline runs the stages in order on a single thread, feeding each
// stage's output to the next.
type Pipeline struct {
	conv      Conversation
	history   History
	publisher Publisher
	stages    []Stage
	logger    *slog.Logger
}

// New builds a Pipeline. publisher may be nil.
func New(conv Conversation, h History, pub Publisher, stages []Stage, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		conv:      conv,
		history:   h,
		publisher: pub,
		stages:    stages,
		logger:    logger,
	}
}

func (p *Pipeline) Stages() []Stage {
	return p.stages
}

// Process runs the pipeline for one brain dump. A failing stage stops the
// run; stages that already finished stay persisted.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	res := &Result{RunID: uuid.NewString()}
	start := time.Now()
	logger := p.logger.With("run_id", res.RunID, "user_id", req.UserID)

	plan := p.plan(req)
	if len(plan) == 0 {
		return nil, errors.New("no stages configured")
	}
	for _, st := range plan {
		if st.AssistantID == "" {
			err := fmt.Errorf("%s: %w", st.Name, ErrStageUnavailable)
			p.finish(res, req, start, st.Name, err)
			return nil, err
		}
	}

	threadID, err := p.conv.CreateThread(ctx)
	if err != nil {
		p.finish(res, req, start, "create_thread", err)
		return nil, fmt.Errorf("create thread: %w", err)
	}
	res.ThreadID = threadID
	logger = logger.With("thread_id", threadID)
	logger.Info("pipeline started", "stages", len(plan))

	previous := p.history.GetLatest(ctx, req.UserID, plan[0].Collection)
	logger.Debug("previous master file", "length", len(previous))

	input := req.BrainDump
	for _, st := range plan {
		logger.Info("running stage", "stage", st.Name, "assistant_id", st.AssistantID)

		out, err := p.conv.Invoke(ctx, threadID, st.AssistantID, input)
		if err != nil {
			logger.Error("stage failed", "stage", st.Name, "error", err)
			p.finish(res, req, start, st.Name, err)
			return nil, fmt.Errorf("stage %s: %w", st.Name, err)
		}

		p.history.Save(ctx, req.UserID, st.Collection, out)

		sr := StageResult{Name: st.Name, Collection: st.Collection, Content: out, ProducedAt: time.Now().UTC()}
		res.Stages = append(res.Stages, sr)
		p.publish(hermes.SubjectStageCompleted, hermes.StageCompleted{
			RunID:       res.RunID,
			ThreadID:    threadID,
			UserID:      req.UserID,
			Stage:       st.Name,
			Collection:  st.Collection,
			AssistantID: st.AssistantID,
			ContentLen:  len(out),
			ProducedAt:  sr.ProducedAt,
		})

		input = out
	}

	p.finish(res, req, start, "", nil)
	logger.Info("pipeline completed", "stages", len(res.Stages), "duration", time.Since(start).String())
	return res, nil
}

// plan drops optional stages the request did not ask for.
func (p *Pipeline) plan(req Request) []Stage {
	plan := make([]Stage, 0, len(p.stages))
	for _, st := range p.stages {
		if st.Optional && !req.TriggerBrandAnalysis {
			continue
		}
		plan = append(plan, st)
	}
	return plan
}

func (p *Pipeline) finish(res *Result, req Request, start time.Time, failedAt string, err error) {
	evt := hermes.PipelineFinished{
		RunID:      res.RunID,
		ThreadID:   res.ThreadID,
		UserID:     req.UserID,
		Stages:     make([]string, 0, len(res.Stages)),
		DurationMS: time.Since(start).Milliseconds(),
		FinishedAt: time.Now().UTC(),
	}
	for _, s := range res.Stages {
		evt.Stages = append(evt.Stages, s.Name)
	}

	subject := hermes.SubjectPipelineCompleted
	if err != nil {
		subject = hermes.SubjectPipelineFailed
		evt.FailedAt = failedAt
		evt.Error = err.Error()
	}
	p.publish(subject, evt)
}

func (p *Pipeline) publish(subject string, data any) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
