package types

import "fmt"

// ScenarioType classifies how a scenario is evaluated.
type ScenarioType string

const (
	// ScenarioTypePolicy indicates a behavioral-policy scenario. Red-team
	// generated scenarios also use this type so they flow through the shared
	// evaluation pipeline.
	ScenarioTypePolicy ScenarioType = "policy"

	// ScenarioTypePromptInjection indicates a dataset-driven prompt
	// injection scenario.
	ScenarioTypePromptInjection ScenarioType = "prompt_injection"
)

// IsValid returns true if the scenario type is valid.
func (t ScenarioType) IsValid() bool {
	switch t {
	case ScenarioTypePolicy, ScenarioTypePromptInjection:
		return true
	default:
		return false
	}
}

// String returns the string representation of the scenario type.
func (t ScenarioType) String() string {
	return string(t)
}

// Scenario is a single test case: the adversarial instruction to drive a
// conversation with, how to evaluate it, and optional dataset bindings.
type Scenario struct {
	// Scenario is the test instruction text.
	Scenario string `json:"scenario"`

	// ScenarioType classifies the scenario (policy or prompt_injection).
	ScenarioType ScenarioType `json:"scenario_type"`

	// ExpectedOutcome describes what a defending agent should do.
	ExpectedOutcome string `json:"expected_outcome,omitempty"`

	// Dataset references the prompt dataset backing this scenario.
	// Required when ScenarioType is not policy.
	Dataset *string `json:"dataset,omitempty"`

	// DatasetSampleSize is the number of dataset samples to draw.
	// Required when Dataset is set.
	DatasetSampleSize *int `json:"dataset_sample_size,omitempty"`
}

// Validate checks the scenario's structural invariants.
func (s Scenario) Validate() error {
	if s.Scenario == "" {
		return fmt.Errorf("scenario text cannot be empty")
	}

	if !s.ScenarioType.IsValid() {
		return fmt.Errorf("invalid scenario type %q", s.ScenarioType)
	}

	if s.ScenarioType != ScenarioTypePolicy {
		if s.Dataset == nil || *s.Dataset == "" {
			return fmt.Errorf("scenario type %q requires a dataset", s.ScenarioType)
		}
		if s.DatasetSampleSize == nil {
			return fmt.Errorf("scenario type %q requires a dataset sample size", s.ScenarioType)
		}
	}

	return nil
}

// Scenarios is the persisted collection format for the scenarios file.
type Scenarios struct {
	// Scenarios contains the individual test cases.
	Scenarios []Scenario `json:"scenarios"`
}

// Validate checks every contained scenario.
func (s Scenarios) Validate() error {
	for i, sc := range s.Scenarios {
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("scenario %d: %w", i, err)
		}
	}
	return nil
}
