package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qualifire-dev/rogue"
	"github.com/qualifire-dev/rogue/framework"
	"github.com/qualifire-dev/rogue/health"
	"github.com/qualifire-dev/rogue/transport"
	"github.com/qualifire-dev/rogue/types"
)

// EvaluationMode selects how scenarios are sourced.
type EvaluationMode string

const (
	// ModePolicy evaluates hand-written behavioral policy scenarios.
	ModePolicy EvaluationMode = "policy"

	// ModeRedTeam generates scenarios from the selected OWASP categories.
	ModeRedTeam EvaluationMode = "red_team"
)

// IsValid returns true if the mode is one of the defined constants.
func (m EvaluationMode) IsValid() bool {
	return m == ModePolicy || m == ModeRedTeam
}

// Defaults applied by ApplyDefaults.
const (
	DefaultWorkdir            = "./.rogue"
	DefaultScenariosFileName  = "scenarios.json"
	DefaultAttacksPerCategory = 5
	DefaultMinTestsPerAttack  = 3
)

// Config is the closed set of recognized engine options.
type Config struct {
	// Workdir is where engine files live (default ./.rogue).
	Workdir string `yaml:"workdir"`

	// Protocol selects how the target agent is reached: a2a, mcp, openai,
	// or python. Empty defaults to openai.
	Protocol string `yaml:"protocol"`

	// Transport selects the wire variant for protocols with more than one
	// (mcp: sse or streamable_http, default streamable_http).
	Transport string `yaml:"transport"`

	// EvaluatedAgentURL is the target agent endpoint. Required unless
	// Protocol is python.
	EvaluatedAgentURL string `yaml:"evaluated_agent_url"`

	// PythonEntrypointFile is the in-process target's entry script.
	// Required iff Protocol is python; must exist and be a file.
	PythonEntrypointFile string `yaml:"python_entrypoint_file"`

	// AuthType selects the authentication mode for the target agent.
	AuthType types.AuthType `yaml:"evaluated_agent_auth_type"`

	// Credentials holds the credential value when AuthType requires one.
	Credentials string `yaml:"evaluated_agent_credentials"`

	// JudgeLLM is the model identifier for judge and evaluator calls.
	JudgeLLM string `yaml:"judge_llm"`

	// JudgeLLMAPIKey authenticates judge LLM calls.
	JudgeLLMAPIKey string `yaml:"judge_llm_api_key"`

	// BusinessContext describes the target agent's domain inline.
	// Mutually exclusive with BusinessContextFile.
	BusinessContext string `yaml:"business_context"`

	// BusinessContextFile reads the business context from a file.
	BusinessContextFile string `yaml:"business_context_file"`

	// InputScenariosFile is the scenarios JSON file
	// (default <workdir>/scenarios.json).
	InputScenariosFile string `yaml:"input_scenarios_file"`

	// OutputReportFile is where the Markdown report is written. Empty
	// disables report writing.
	OutputReportFile string `yaml:"output_report_file"`

	// DeepTestMode runs each scenario multiple times and ANDs the verdicts.
	DeepTestMode bool `yaml:"deep_test_mode"`

	// EvaluationMode selects policy or red_team (default policy).
	EvaluationMode EvaluationMode `yaml:"evaluation_mode"`

	// OWASPCategories are the framework categories to generate scenarios
	// for. Required iff EvaluationMode is red_team.
	OWASPCategories []string `yaml:"owasp_categories"`

	// AttacksPerCategory is the number of scenarios generated per category
	// (default 5).
	AttacksPerCategory int `yaml:"attacks_per_category"`

	// MinTestsPerAttack is accepted for schema compatibility but unused by
	// the engine (default 3).
	MinTestsPerAttack int `yaml:"min_tests_per_attack"`
}

// Load reads, strictly decodes, defaults, and validates a YAML config file.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, rogue.E("config.Load", rogue.KindConfiguration,
			fmt.Errorf("failed to open config file: %w", err))
	}
	defer f.Close()

	return Read(f)
}

// Read strictly decodes, defaults, and validates YAML configuration.
func Read(r io.Reader) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, rogue.E("config.Read", rogue.KindConfiguration,
			fmt.Errorf("failed to decode config: %w", err))
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset options with their documented defaults.
func (c *Config) ApplyDefaults() {
	if c.Workdir == "" {
		c.Workdir = DefaultWorkdir
	}
	if c.Protocol == "" {
		c.Protocol = transport.ProtocolOpenAI
	}
	if c.Protocol == transport.ProtocolMCP && c.Transport == "" {
		c.Transport = transport.TransportStreamableHTTP
	}
	if c.InputScenariosFile == "" {
		c.InputScenariosFile = filepath.Join(c.Workdir, DefaultScenariosFileName)
	}
	if c.EvaluationMode == "" {
		c.EvaluationMode = ModePolicy
	}
	if c.AttacksPerCategory == 0 {
		c.AttacksPerCategory = DefaultAttacksPerCategory
	}
	if c.MinTestsPerAttack == 0 {
		c.MinTestsPerAttack = DefaultMinTestsPerAttack
	}
}

// Validate checks every configured option against the schema. Call
// ApplyDefaults first.
func (c Config) Validate() error {
	fail := func(err error) error {
		return rogue.E("config.Validate", rogue.KindConfiguration,
			fmt.Errorf("%w: %w", rogue.ErrInvalidConfig, err))
	}

	switch c.Protocol {
	case transport.ProtocolA2A, transport.ProtocolMCP, transport.ProtocolOpenAI, transport.ProtocolPython:
	default:
		return fail(fmt.Errorf("unknown protocol %q", c.Protocol))
	}

	if c.Transport != "" {
		if c.Protocol != transport.ProtocolMCP {
			return fail(fmt.Errorf("transport is only configurable for the mcp protocol"))
		}
		if c.Transport != transport.TransportSSE && c.Transport != transport.TransportStreamableHTTP {
			return fail(fmt.Errorf("unknown mcp transport %q", c.Transport))
		}
	}

	if c.Protocol == transport.ProtocolPython {
		if c.PythonEntrypointFile == "" {
			return fail(fmt.Errorf("python_entrypoint_file is required for the python protocol"))
		}
		if status := health.FileCheck(c.PythonEntrypointFile); !status.IsHealthy() {
			return fail(fmt.Errorf("python_entrypoint_file: %s", status.Message))
		}
	} else {
		if c.PythonEntrypointFile != "" {
			return fail(fmt.Errorf("python_entrypoint_file is only valid for the python protocol"))
		}
		if c.EvaluatedAgentURL == "" {
			return fail(fmt.Errorf("evaluated_agent_url is required"))
		}
	}

	if c.AuthType != "" && !c.AuthType.IsValid() {
		return fail(fmt.Errorf("unknown auth type %q", c.AuthType))
	}
	if c.AuthType.RequiresCredentials() && c.Credentials == "" {
		return fail(fmt.Errorf("auth type %q requires evaluated_agent_credentials", c.AuthType))
	}

	if c.BusinessContext != "" && c.BusinessContextFile != "" {
		return fail(fmt.Errorf("business_context and business_context_file are mutually exclusive"))
	}

	if !c.EvaluationMode.IsValid() {
		return fail(fmt.Errorf("unknown evaluation_mode %q", c.EvaluationMode))
	}
	if c.EvaluationMode == ModeRedTeam {
		if len(c.OWASPCategories) == 0 {
			return fail(fmt.Errorf("owasp_categories is required when evaluation_mode is red_team"))
		}
		for _, id := range c.OWASPCategories {
			if _, ok := framework.Lookup(id); !ok {
				return fail(fmt.Errorf("unknown owasp category %q", id))
			}
		}
	} else if len(c.OWASPCategories) > 0 {
		return fail(fmt.Errorf("owasp_categories is only valid when evaluation_mode is red_team"))
	}

	if c.AttacksPerCategory < 0 {
		return fail(fmt.Errorf("attacks_per_category cannot be negative"))
	}
	if c.MinTestsPerAttack < 0 {
		return fail(fmt.Errorf("min_tests_per_attack cannot be negative"))
	}

	return nil
}

// ResolveBusinessContext returns the effective business context, reading
// BusinessContextFile when configured.
func (c Config) ResolveBusinessContext() (string, error) {
	if c.BusinessContextFile == "" {
		return c.BusinessContext, nil
	}

	data, err := os.ReadFile(c.BusinessContextFile)
	if err != nil {
		return "", rogue.E("config.ResolveBusinessContext", rogue.KindConfiguration,
			fmt.Errorf("failed to read business context file: %w", err))
	}
	return strings.TrimSpace(string(data)), nil
}

// AgentConfig projects the file configuration onto the request-level agent
// configuration used by the orchestrator.
func (c Config) AgentConfig() types.AgentConfig {
	return types.AgentConfig{
		EvaluatedAgentURL: c.EvaluatedAgentURL,
		Protocol:          c.Protocol,
		Transport:         c.Transport,
		AuthType:          c.AuthType,
		Credentials:       c.Credentials,
		JudgeLLM:          c.JudgeLLM,
		JudgeLLMAPIKey:    c.JudgeLLMAPIKey,
		BusinessContext:   c.BusinessContext,
		DeepTestMode:      c.DeepTestMode,
	}
}
