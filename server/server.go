package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qualifire-dev/rogue"
	"github.com/qualifire-dev/rogue/llm"
	"github.com/qualifire-dev/rogue/orchestrator"
)

// DefaultAddr is the default listen address.
const DefaultAddr = ":8000"

// Options configures a Server.
type Options struct {
	// Addr is the listen address (default ":8000").
	Addr string

	// Orchestrator executes evaluation jobs. Required.
	Orchestrator *orchestrator.Orchestrator

	// NewLLMClient builds clients for summary generation and interview
	// sessions. Defaults to an OpenAI-compatible HTTP client against
	// JudgeBaseURL.
	NewLLMClient func(model, apiKey string) (llm.Client, error)

	// JudgeBaseURL is the OpenAI-compatible API base used by the default
	// NewLLMClient.
	JudgeBaseURL string

	// HealthTargets are endpoint URLs probed by the health handler, e.g.
	// the target agent and the judge API base.
	HealthTargets []string

	// Logger records request diagnostics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Server is the engine's HTTP boundary.
type Server struct {
	opts       Options
	logger     *slog.Logger
	interviews *InterviewManager
	httpServer *http.Server
}

// New creates a Server. It panics if no orchestrator is configured, since
// every job-control route depends on it.
func New(opts Options) *Server {
	if opts.Orchestrator == nil {
		panic("server: Options.Orchestrator is required")
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.JudgeBaseURL == "" {
		opts.JudgeBaseURL = orchestrator.DefaultJudgeBaseURL
	}
	if opts.NewLLMClient == nil {
		baseURL := opts.JudgeBaseURL
		opts.NewLLMClient = func(model, apiKey string) (llm.Client, error) {
			return llm.NewHTTPClient(llm.HTTPClientOptions{
				BaseURL: baseURL,
				APIKey:  apiKey,
				Model:   model,
			})
		}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Server{
		opts:       opts,
		logger:     opts.Logger,
		interviews: NewInterviewManager(InterviewOptions{Logger: opts.Logger}),
	}
}

// Router builds the chi router with every API route mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/evaluations", func(r chi.Router) {
			r.Post("/", s.handleCreateEvaluation)
			r.Get("/", s.handleListEvaluations)
			r.Get("/{jobID}", s.handleGetEvaluation)
			r.Post("/{jobID}/cancel", s.handleCancelEvaluation)
			r.Get("/{jobID}/events", s.handleEvaluationEvents)
		})

		r.Post("/scenarios/generate", s.handleGenerateScenarios)
		r.Post("/summary", s.handleSummary)

		r.Route("/interviews", func(r chi.Router) {
			r.Post("/", s.handleStartInterview)
			r.Post("/{sessionID}/messages", s.handleInterviewMessage)
			r.Get("/{sessionID}", s.handleInterviewTranscript)
			r.Delete("/{sessionID}", s.handleEndInterview)
		})
	})

	return r
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("http server starting", "addr", s.opts.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps engine errors onto HTTP statuses.
func (s *Server) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rogue.ErrJobNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case rogue.IsKind(err, rogue.KindValidation), rogue.IsKind(err, rogue.KindConfiguration):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// llmClient builds a client for the given model, or nil when no model is
// configured or construction fails. Callers degrade to deterministic
// behavior on nil.
func (s *Server) llmClient(model, apiKey string) llm.Client {
	if model == "" {
		return nil
	}
	client, err := s.opts.NewLLMClient(model, apiKey)
	if err != nil {
		s.logger.Warn("failed to build LLM client", "model", model, "error", err)
		return nil
	}
	return client
}

// decodeBody decodes a JSON request body. An empty body leaves v zeroed so
// handlers with all-optional fields accept bodyless requests.
func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
