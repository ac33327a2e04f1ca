package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/qualifire-dev/rogue/config"
	"github.com/qualifire-dev/rogue/llm"
	"github.com/qualifire-dev/rogue/orchestrator"
	"github.com/qualifire-dev/rogue/report"
	"github.com/qualifire-dev/rogue/scenario"
	"github.com/qualifire-dev/rogue/transport"
	"github.com/qualifire-dev/rogue/types"
)

// RunCmd executes one full evaluation from the config file: sources the
// scenarios, runs the job to completion, and writes the report.
type RunCmd struct {
	JudgeBaseURL string `name:"judge-base-url" help:"OpenAI-compatible API base for judge calls." env:"ROGUE_JUDGE_BASE_URL"`
}

func (c *RunCmd) Run(cli *CLI) error {
	logger, err := setupLogger(cli.LogLevel)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	if cfg.Protocol == transport.ProtocolPython {
		return fmt.Errorf("the python protocol embeds the target in-process and is not runnable from the CLI")
	}

	businessContext, err := cfg.ResolveBusinessContext()
	if err != nil {
		return err
	}

	scenarios, err := c.sourceScenarios(cfg, businessContext)
	if err != nil {
		return err
	}

	agentCfg := cfg.AgentConfig()
	agentCfg.BusinessContext = businessContext

	orch := orchestrator.New(orchestrator.Options{
		JudgeBaseURL: c.JudgeBaseURL,
		Logger:       logger,
	})
	defer orch.Close()

	job, err := orch.Submit(types.EvaluationRequest{
		AgentConfig: agentCfg,
		Scenarios:   scenarios.Scenarios,
	})
	if err != nil {
		return err
	}
	logger.Info("evaluation started", "job_id", job.JobID, "scenarios", len(scenarios.Scenarios))

	events, cancelSub, err := orch.Subscribe(job.JobID)
	if err != nil {
		return err
	}
	defer cancelSub()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = orch.Cancel(job.JobID)
	}()

	for ev := range events {
		if ev.Type != orchestrator.EventTypeJobUpdate {
			continue
		}
		if update, ok := ev.Data.(orchestrator.JobUpdate); ok {
			logger.Info("progress", "status", update.Status, "progress", fmt.Sprintf("%.0f%%", update.Progress*100))
		}
	}

	final, err := orch.Get(job.JobID)
	if err != nil {
		return err
	}
	return c.finish(cfg, final)
}

// sourceScenarios generates scenarios in red_team mode and loads the
// scenarios file in policy mode.
func (c *RunCmd) sourceScenarios(cfg config.Config, businessContext string) (types.Scenarios, error) {
	if cfg.EvaluationMode != config.ModeRedTeam {
		return scenario.LoadFile(cfg.InputScenariosFile)
	}

	gen := scenario.NewGenerator(scenario.GeneratorOptions{
		BusinessContext:    businessContext,
		AttacksPerCategory: cfg.AttacksPerCategory,
	})
	scenarios := gen.Generate(cfg.OWASPCategories)

	// Persist what we run so the evaluation is reproducible.
	if err := scenario.SaveFile(cfg.InputScenariosFile, scenarios); err != nil {
		return types.Scenarios{}, err
	}
	return scenarios, nil
}

func (c *RunCmd) finish(cfg config.Config, job types.EvaluationJob) error {
	if job.Results == nil {
		return fmt.Errorf("evaluation %s: %s", job.Status, job.Error)
	}

	var judgeClient llm.Client
	if cfg.JudgeLLM != "" {
		baseURL := c.JudgeBaseURL
		if baseURL == "" {
			baseURL = orchestrator.DefaultJudgeBaseURL
		}
		if client, err := llm.NewHTTPClient(llm.HTTPClientOptions{
			BaseURL: baseURL,
			APIKey:  cfg.JudgeLLMAPIKey,
			Model:   cfg.JudgeLLM,
		}); err == nil {
			judgeClient = client
		}
	}

	summary := report.Summarize(context.Background(), judgeClient, *job.Results)
	fmt.Println(summary)

	if cfg.OutputReportFile != "" {
		r := report.Report{Results: *job.Results, Summary: summary}
		if err := r.WriteFile(cfg.OutputReportFile); err != nil {
			return err
		}
		fmt.Printf("report written to %s\n", cfg.OutputReportFile)
	}

	switch {
	case job.Status != types.JobStatusCompleted:
		return fmt.Errorf("evaluation %s: %s", job.Status, job.Error)
	case !job.Results.Passed():
		return fmt.Errorf("evaluation completed with failing scenarios")
	default:
		fmt.Println("evaluation passed")
		return nil
	}
}
