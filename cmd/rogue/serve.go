package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qualifire-dev/rogue/config"
	"github.com/qualifire-dev/rogue/orchestrator"
	"github.com/qualifire-dev/rogue/server"
)

// ServeCmd starts the evaluation API server.
type ServeCmd struct {
	Addr              string `help:"Listen address." default:":8000"`
	RedisURL          string `name:"redis-url" help:"Redis URL for the event bridge." env:"ROGUE_REDIS_URL"`
	MaxConcurrentJobs int    `name:"max-concurrent-jobs" help:"Bound on jobs running at once (0 = unbounded)." default:"0"`
	JudgeBaseURL      string `name:"judge-base-url" help:"OpenAI-compatible API base for judge calls." env:"ROGUE_JUDGE_BASE_URL"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	logger, err := setupLogger(cli.LogLevel)
	if err != nil {
		return err
	}

	var healthTargets []string
	if cfg, err := config.Load(cli.Config); err == nil {
		if cfg.EvaluatedAgentURL != "" {
			healthTargets = append(healthTargets, cfg.EvaluatedAgentURL)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		// Serving without a config file is fine; a broken one is not.
		return err
	}

	var bridge *orchestrator.EventBridge
	if c.RedisURL != "" {
		bridge, err = orchestrator.NewEventBridge(orchestrator.EventBridgeOptions{
			URL:    c.RedisURL,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		defer bridge.Close()
		logger.Info("event bridge connected", "url", c.RedisURL)
	}

	orch := orchestrator.New(orchestrator.Options{
		MaxConcurrentJobs: c.MaxConcurrentJobs,
		JudgeBaseURL:      c.JudgeBaseURL,
		Bridge:            bridge,
		Logger:            logger,
	})
	defer orch.Close()

	srv := server.New(server.Options{
		Addr:          c.Addr,
		Orchestrator:  orch,
		JudgeBaseURL:  c.JudgeBaseURL,
		HealthTargets: healthTargets,
		Logger:        logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
