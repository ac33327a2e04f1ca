package main

import (
	"fmt"
	"math/rand"

	"github.com/qualifire-dev/rogue/config"
	"github.com/qualifire-dev/rogue/scenario"
)

// GenerateCmd expands the configured OWASP categories into scenarios and
// writes them to the configured scenarios file.
type GenerateCmd struct {
	Output string `short:"o" help:"Output file (defaults to input_scenarios_file from the config)." type:"path"`
	Seed   int64  `help:"RNG seed for reproducible generation." default:"1"`
}

func (c *GenerateCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	businessContext, err := cfg.ResolveBusinessContext()
	if err != nil {
		return err
	}

	gen := scenario.NewGenerator(scenario.GeneratorOptions{
		BusinessContext:    businessContext,
		AttacksPerCategory: cfg.AttacksPerCategory,
		Rand:               rand.New(rand.NewSource(c.Seed)),
	})

	// With a policy-mode config the category list is empty, which selects
	// every agent-relevant category.
	scenarios := gen.Generate(cfg.OWASPCategories)

	out := c.Output
	if out == "" {
		out = cfg.InputScenariosFile
	}
	if err := scenario.SaveFile(out, scenarios); err != nil {
		return err
	}

	fmt.Printf("wrote %d scenarios to %s\n", len(scenarios.Scenarios), out)
	return nil
}
