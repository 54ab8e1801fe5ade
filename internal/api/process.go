package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MikeSquared-Agency/scribe/internal/assistants"
	"github.com/MikeSquared-Agency/scribe/internal/pipeline"
	"github.com/MikeSquared-Agency/scribe/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	msgBrainDumpRequired = "Brain Dump is required"
	msgProcessFailed     = "Failed to process AI workflow."
)

// ValidationError is a client mistake in the request body.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// truthy decodes any JSON value the way a loosely typed client means it:
// false, 0, "", and null are false; everything else is true.
type truthy bool

func (t *truthy) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = false
	case bool:
		*t = truthy(x)
	case float64:
		*t = x != 0
	case string:
		*t = x != ""
	default:
		*t = true
	}
	return nil
}

type processRequest struct {
	BrainDump            string `json:"brain_dump"`
	TriggerBrandAnalysis truthy `json:"trigger_brand_analysis"`
}

type processResponse struct {
	ThreadID              string  `json:"thread_id"`
	MasterFileUpdate      *string `json:"masterFileUpdate"`
	CoreMessagingUpdate   *string `json:"coreMessagingUpdate"`
	IdentityProfileUpdate *string `json:"identityProfileUpdate"`
	SocialContent         *string `json:"socialContent"`
	ContentFeedback       *string `json:"contentFeedback"`
	BrandAnalysis         *string `json:"brandAnalysis"`
}

// decodeProcessRequest requires brain_dump to be a string with visible text.
// Whitespace-only and non-string values are rejected like a missing field.
func decodeProcessRequest(r *http.Request) (processRequest, error) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, &ValidationError{Message: msgBrainDumpRequired}
	}
	if strings.TrimSpace(req.BrainDump) == "" {
		return req, &ValidationError{Message: msgBrainDumpRequired}
	}
	return req, nil
}

// process handles POST /api/process.
func (s *Server) process(w http.ResponseWriter, r *http.Request) {
	req, err := decodeProcessRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID, err := s.identity.Resolve(r)
	if err != nil {
		s.logger.Warn("identity rejected", "error", err)
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	// The pipeline outlives a disconnected client so finished stages are
	// still saved; the timeout bounds it instead.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.timeout)
	defer cancel()

	res, err := s.pipeline.Process(ctx, pipeline.Request{
		UserID:               userID,
		BrainDump:            req.BrainDump,
		TriggerBrandAnalysis: bool(req.TriggerBrandAnalysis),
	})
	if err != nil {
		s.logProcessError(r, userID, err)
		writeError(w, http.StatusInternalServerError, msgProcessFailed)
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		ThreadID:              res.ThreadID,
		MasterFileUpdate:      res.Output(pipeline.StageMasterFile),
		CoreMessagingUpdate:   res.Output(pipeline.StageCoreMessaging),
		IdentityProfileUpdate: res.Output(pipeline.StageIdentityProfile),
		SocialContent:         res.Output(pipeline.StageSocialContent),
		ContentFeedback:       res.Output(pipeline.StageContentFeedback),
		BrandAnalysis:         res.Output(pipeline.StageBrandAnalysis),
	})
}

func (s *Server) logProcessError(r *http.Request, userID string, err error) {
	attrs := []any{"error", err, "user_id", userID, "request_id", middleware.GetReqID(r.Context())}

	var sessErr *assistants.SessionCreationError
	var runErr *assistants.AssistantRunError
	switch {
	case errors.As(err, &sessErr):
		attrs = append(attrs, "kind", "session_creation")
	case errors.As(err, &runErr):
		attrs = append(attrs, "kind", "assistant_run", "assistant_id", runErr.AssistantID, "state", string(runErr.State))
	case errors.Is(err, pipeline.ErrStageUnavailable):
		attrs = append(attrs, "kind", "configuration")
	}
	s.logger.Error("error in processing", attrs...)
}

type stageDocument struct {
	Stage string `json:"stage"`
	*store.Document
}

// latestStage handles GET /api/stages/{stage}.
func (s *Server) latestStage(w http.ResponseWriter, r *http.Request) {
	st, ok := pipeline.Lookup(s.pipeline.Stages(), chi.URLParam(r, "stage"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown stage")
		return
	}

	userID, err := s.identity.Resolve(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	doc, err := s.history.Latest(r.Context(), userID, st.Collection)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no stored output for stage")
		return
	}
	if err != nil {
		s.logger.Error("history lookup failed", "stage", st.Name, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "history lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, stageDocument{Stage: st.Name, Document: doc})
}
