package server

import (
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qualifire-dev/rogue/health"
	"github.com/qualifire-dev/rogue/report"
	"github.com/qualifire-dev/rogue/scenario"
	"github.com/qualifire-dev/rogue/types"
)

// jobAck is the response to create and cancel requests.
type jobAck struct {
	JobID   string          `json:"job_id"`
	Status  types.JobStatus `json:"status"`
	Message string          `json:"message"`
}

func (s *Server) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req types.EvaluationRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.opts.Orchestrator.Submit(req)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	s.writeJSON(w, http.StatusAccepted, jobAck{
		JobID:   job.JobID,
		Status:  job.Status,
		Message: "evaluation accepted",
	})
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	job, err := s.opts.Orchestrator.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	status := types.JobStatus(q.Get("status"))
	if status != "" && !status.IsValid() {
		s.writeError(w, http.StatusBadRequest, "unknown status filter "+strconv.Quote(string(status)))
		return
	}

	limit, err := queryInt(q.Get("limit"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := queryInt(q.Get("offset"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	jobs := s.opts.Orchestrator.List(status, limit, offset)
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

func (s *Server) handleCancelEvaluation(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if err := s.opts.Orchestrator.Cancel(jobID); err != nil {
		s.writeErr(w, err)
		return
	}

	job, err := s.opts.Orchestrator.Get(jobID)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, jobAck{
		JobID:   jobID,
		Status:  job.Status,
		Message: "cancellation requested",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := types.NewHealthyStatus("ok")
	if len(s.opts.HealthTargets) > 0 {
		checks := make([]types.HealthStatus, 0, len(s.opts.HealthTargets))
		for _, target := range s.opts.HealthTargets {
			checks = append(checks, health.EndpointCheck(r.Context(), target))
		}
		status = health.Combine(checks...)
	}

	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}

	s.writeJSON(w, code, map[string]any{
		"status":    status.Status,
		"message":   status.Message,
		"details":   status.Details,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// generateScenariosRequest selects what to generate. A zero seed keeps the
// generator's fixed default so repeated calls return the same scenarios.
type generateScenariosRequest struct {
	BusinessContext    string   `json:"business_context,omitempty"`
	OWASPCategories    []string `json:"owasp_categories,omitempty"`
	AttacksPerCategory int      `json:"attacks_per_category,omitempty"`
	Seed               int64    `json:"seed,omitempty"`
}

func (s *Server) handleGenerateScenarios(w http.ResponseWriter, r *http.Request) {
	var req generateScenariosRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := scenario.GeneratorOptions{
		BusinessContext:    req.BusinessContext,
		AttacksPerCategory: req.AttacksPerCategory,
	}
	if req.Seed != 0 {
		opts.Rand = rand.New(rand.NewSource(req.Seed))
	}

	scenarios := scenario.NewGenerator(opts).Generate(req.OWASPCategories)
	s.writeJSON(w, http.StatusOK, scenarios)
}

type summaryRequest struct {
	Results        types.EvaluationResults `json:"results"`
	JudgeLLM       string                  `json:"judge_llm,omitempty"`
	JudgeLLMAPIKey string                  `json:"judge_llm_api_key,omitempty"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	client := s.llmClient(req.JudgeLLM, req.JudgeLLMAPIKey)
	summary := report.Summarize(r.Context(), client, req.Results)
	s.writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func queryInt(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}
