package types

// ConversationEvaluation is one judged transcript for a scenario.
type ConversationEvaluation struct {
	// Messages is the full conversation transcript.
	Messages ChatHistory `json:"messages"`

	// Passed reflects the aggregate of metric verdicts for this conversation:
	// true only if every metric scored 1.
	Passed bool `json:"passed"`

	// Reason is the concatenation of per-metric reasons.
	Reason string `json:"reason"`
}

// EvaluationResult is the verdict for one scenario, owning its conversations.
type EvaluationResult struct {
	// Scenario is the test case this result belongs to.
	Scenario Scenario `json:"scenario"`

	// Conversations contains one entry per completed conversation run.
	Conversations []ConversationEvaluation `json:"conversations"`

	// Passed is the AND over all conversations.
	Passed bool `json:"passed"`
}

// Recompute sets Passed from the conversations. A result with no
// conversations passes vacuously.
func (r *EvaluationResult) Recompute() {
	r.Passed = true
	for _, c := range r.Conversations {
		if !c.Passed {
			r.Passed = false
			return
		}
	}
}

// EvaluationResults aggregates per-scenario results for a job.
type EvaluationResults struct {
	// Results contains one entry per distinct scenario.
	Results []EvaluationResult `json:"results"`
}

// Add merges a result into the aggregate. Results for an already-present
// scenario (matched by scenario text) are combined: conversations are
// concatenated and the passed flags are ANDed. The operation is associative
// and commutative on the passed flag.
func (rs *EvaluationResults) Add(result EvaluationResult) {
	for i := range rs.Results {
		if rs.Results[i].Scenario.Scenario == result.Scenario.Scenario {
			rs.Results[i].Conversations = append(rs.Results[i].Conversations, result.Conversations...)
			rs.Results[i].Passed = rs.Results[i].Passed && result.Passed
			return
		}
	}
	rs.Results = append(rs.Results, result)
}

// Merge combines another aggregate into this one, scenario by scenario.
func (rs *EvaluationResults) Merge(other EvaluationResults) {
	for _, r := range other.Results {
		rs.Add(r)
	}
}

// Passed reports whether every scenario passed. An empty aggregate passes.
func (rs EvaluationResults) Passed() bool {
	for _, r := range rs.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Len returns the number of distinct scenarios in the aggregate.
func (rs EvaluationResults) Len() int {
	return len(rs.Results)
}
