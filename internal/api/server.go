package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/scribe/internal/identity"
	"github.com/MikeSquared-Agency/scribe/internal/pipeline"
	"github.com/MikeSquared-Agency/scribe/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Processor runs the assistant pipeline.
type Processor interface {
	Process(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Stages() []pipeline.Stage
}

// HistoryReader reads the latest stored stage output.
type HistoryReader interface {
	Latest(ctx context.Context, userID, collection string) (*store.Document, error)
}

type Options struct {
	Pipeline        Processor
	History         HistoryReader
	Identity        identity.Resolver
	PipelineTimeout time.Duration
	Logger          *slog.Logger
}

type Server struct {
	router   *chi.Mux
	httpSrv  *http.Server
	pipeline Processor
	history  HistoryReader
	identity identity.Resolver
	timeout  time.Duration
	logger   *slog.Logger
}

func NewServer(port int, opts Options) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	s := &Server{
		router:   router,
		pipeline: opts.Pipeline,
		history:  opts.History,
		identity: opts.Identity,
		timeout:  opts.PipelineTimeout,
		logger:   opts.Logger,
	}
	if s.identity == nil {
		s.identity = identity.Static("default_user")
	}
	if s.timeout <= 0 {
		s.timeout = 15 * time.Minute
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/scribe/status", s.status)
	router.Post("/api/process", s.process)
	router.Get("/api/stages/{stage}", s.latestStage)

	s.httpSrv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called, then returns http.ErrServerClosed.
func (s *Server) Start() error {
	s.logger.Info("API server starting", "addr", s.httpSrv.Addr)
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	var stages []string
	brand := false
	for _, st := range s.pipeline.Stages() {
		if st.AssistantID == "" {
			continue
		}
		stages = append(stages, st.Name)
		if st.Name == pipeline.StageBrandAnalysis {
			brand = true
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":          "scribe",
		"status":         "ok",
		"stages":         stages,
		"brand_analysis": brand,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
