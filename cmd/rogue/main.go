// Command rogue runs the red-team evaluation engine.
//
// Usage:
//
//	rogue serve --config rogue.yaml
//	rogue run --config rogue.yaml
//	rogue generate --config rogue.yaml
//	rogue validate --config rogue.yaml
//	rogue version
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/qualifire-dev/rogue"
	"github.com/qualifire-dev/rogue/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version  VersionCmd  `cmd:"" help:"Show version information."`
	Serve    ServeCmd    `cmd:"" help:"Start the evaluation API server."`
	Run      RunCmd      `cmd:"" help:"Run one evaluation from the config file."`
	Generate GenerateCmd `cmd:"" help:"Generate red-team scenarios into the scenarios file."`
	Validate ValidateCmd `cmd:"" help:"Validate a configuration file."`

	Config   string `short:"c" help:"Path to config file." type:"path" default:"rogue.yaml"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("rogue version %s\n", rogue.Version)
	return nil
}

// ValidateCmd checks the configuration file and exits.
type ValidateCmd struct{}

func (c *ValidateCmd) Run(cli *CLI) error {
	if _, err := config.Load(cli.Config); err != nil {
		return err
	}
	fmt.Printf("%s: configuration is valid\n", cli.Config)
	return nil
}

func setupLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("unknown log level %q", level)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger, nil
}

func main() {
	// A local .env, when present, supplies API keys and the Redis URL.
	_ = godotenv.Load()

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("rogue"),
		kong.Description("Red-team evaluation engine for conversational AI agents."),
		kong.UsageOnError(),
	)

	ctx.FatalIfErrorf(ctx.Run(&cli))
}
