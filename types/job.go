package types

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of an evaluation job.
// Transitions form a strict one-way lattice:
// pending -> running -> (completed | failed | cancelled).
type JobStatus string

const (
	// JobStatusPending indicates the job is accepted but not yet running.
	JobStatusPending JobStatus = "pending"

	// JobStatusRunning indicates scenario workers are executing.
	JobStatusRunning JobStatus = "running"

	// JobStatusCompleted indicates all scenarios finished.
	JobStatusCompleted JobStatus = "completed"

	// JobStatusFailed indicates the orchestrator could not proceed
	// (invariant violation or global timeout).
	JobStatusFailed JobStatus = "failed"

	// JobStatusCancelled indicates the job was cancelled by request.
	JobStatusCancelled JobStatus = "cancelled"
)

// IsValid returns true if the status is one of the defined constants.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if no further transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransition reports whether moving from s to next is a forward edge in
// the status lattice. Backward transitions are forbidden.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusRunning || next == JobStatusFailed || next == JobStatusCancelled
	case JobStatusRunning:
		return next.IsTerminal()
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s JobStatus) String() string {
	return string(s)
}

// AuthType identifies how the engine authenticates against the target agent.
type AuthType string

const (
	// AuthTypeNone disables authentication.
	AuthTypeNone AuthType = "no_auth"

	// AuthTypeAPIKey sends the credential in an X-API-Key header.
	AuthTypeAPIKey AuthType = "api_key"

	// AuthTypeBearer sends the credential as an Authorization bearer token.
	AuthTypeBearer AuthType = "bearer_token"

	// AuthTypeBasic sends the credential as an Authorization basic value.
	AuthTypeBasic AuthType = "basic"
)

// IsValid returns true if the auth type is one of the defined constants.
func (a AuthType) IsValid() bool {
	switch a {
	case AuthTypeNone, AuthTypeAPIKey, AuthTypeBearer, AuthTypeBasic:
		return true
	default:
		return false
	}
}

// RequiresCredentials returns true when the mode needs a credential value.
func (a AuthType) RequiresCredentials() bool {
	return a != AuthTypeNone && a != ""
}

// AgentConfig describes the target agent and the judge used to evaluate it.
type AgentConfig struct {
	// EvaluatedAgentURL is the endpoint of the agent under test.
	EvaluatedAgentURL string `json:"evaluated_agent_url"`

	// Protocol selects the transport protocol (a2a, mcp, openai, python).
	Protocol string `json:"protocol,omitempty"`

	// Transport optionally overrides the protocol's default transport.
	Transport string `json:"transport,omitempty"`

	// AuthType selects the authentication mode for the target agent.
	AuthType AuthType `json:"evaluated_agent_auth_type,omitempty"`

	// Credentials holds the credential value when AuthType requires one.
	Credentials string `json:"evaluated_agent_credentials,omitempty"`

	// JudgeLLM is the model identifier used for LLM-as-judge metrics and the
	// evaluator agent. Empty means no judge is configured.
	JudgeLLM string `json:"judge_llm,omitempty"`

	// JudgeLLMAPIKey authenticates judge LLM calls.
	JudgeLLMAPIKey string `json:"judge_llm_api_key,omitempty"`

	// BusinessContext describes the evaluated agent's domain. It prefixes
	// generated scenario text and steers the evaluator agent.
	BusinessContext string `json:"business_context,omitempty"`

	// DeepTestMode runs each scenario ParallelRuns times and ANDs the verdicts.
	DeepTestMode bool `json:"deep_test_mode,omitempty"`

	// ParallelRuns bounds concurrent scenario workers per job. Default 1.
	ParallelRuns int `json:"parallel_runs,omitempty"`

	// MaxRetries bounds transport and judge retry attempts. Default 3.
	MaxRetries int `json:"max_retries,omitempty"`

	// TimeoutSeconds bounds the whole job. Default 600. On expiry the job is
	// cancelled and marked failed with a timeout reason.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	// MaxTurns bounds conversation turns per scenario. Default 3.
	MaxTurns int `json:"max_turns,omitempty"`
}

// Validate checks the structural invariants of the agent configuration.
func (c AgentConfig) Validate() error {
	if c.EvaluatedAgentURL == "" && c.Protocol != "python" {
		return fmt.Errorf("evaluated_agent_url is required")
	}

	if c.AuthType != "" && !c.AuthType.IsValid() {
		return fmt.Errorf("invalid auth type %q", c.AuthType)
	}

	if c.AuthType.RequiresCredentials() && c.Credentials == "" {
		return fmt.Errorf("auth type %q requires credentials", c.AuthType)
	}

	if c.ParallelRuns < 0 {
		return fmt.Errorf("parallel_runs cannot be negative")
	}

	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds cannot be negative")
	}

	return nil
}

// EvaluationRequest is the unit of submission to the orchestrator.
type EvaluationRequest struct {
	// AgentConfig describes the target and judge.
	AgentConfig AgentConfig `json:"agent_config"`

	// Scenarios are the test cases to run.
	Scenarios []Scenario `json:"scenarios"`
}

// Validate checks the request before job creation.
func (r EvaluationRequest) Validate() error {
	if err := r.AgentConfig.Validate(); err != nil {
		return fmt.Errorf("agent_config: %w", err)
	}

	if len(r.Scenarios) == 0 {
		return fmt.Errorf("at least one scenario is required")
	}

	for i, s := range r.Scenarios {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("scenario %d: %w", i, err)
		}
	}

	return nil
}

// EvaluationJob is the orchestrator's bookkeeping unit for one request.
type EvaluationJob struct {
	// JobID uniquely identifies the job (UUID).
	JobID string `json:"job_id"`

	// Status is the current lifecycle state.
	Status JobStatus `json:"status"`

	// CreatedAt is when the job was accepted.
	CreatedAt time.Time `json:"created_at"`

	// StartedAt is when the job transitioned to running.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// CompletedAt is when the job reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Request is the submitted evaluation request.
	Request EvaluationRequest `json:"request"`

	// Results holds per-scenario verdicts, populated as scenarios finish.
	Results *EvaluationResults `json:"results,omitempty"`

	// Progress is completed_scenarios / total_scenarios, monotone in [0,1].
	Progress float64 `json:"progress"`

	// Error carries the failure reason for failed jobs.
	Error string `json:"error,omitempty"`
}
