// Package rogue provides the core red-team evaluation engine for stress
// testing conversational AI agents.
//
// Rogue takes a business context and a target agent endpoint, expands a
// catalog of vulnerability categories into adversarial scenarios, drives
// multi-turn conversations against the target through a pluggable
// transport, judges each conversation with deterministic and LLM-backed
// metrics, and reports the results.
//
// # Core Concepts
//
// The engine is organized around several key concepts:
//
//   - Attacks: string transformers that obfuscate or wrap a malicious
//     instruction (Base64, ROT13, prompt-injection wrappers, roleplay, ...)
//   - Vulnerabilities: classes of weakness to detect, each binding a metric
//   - Metrics: scorers returning 1.0 (agent defended) down to 0.0
//     (exploit confirmed)
//   - Scenarios: individual test cases produced by the generator
//   - Transport: the protocol-specific channel to the target agent
//   - Orchestrator: job lifecycle, bounded parallelism, and event streaming
//
// # Getting Started
//
// Generate scenarios and run an evaluation:
//
//	gen := scenario.NewGenerator(scenario.GeneratorOptions{
//		BusinessContext:    "An online T-shirt store support agent.",
//		AttacksPerCategory: 5,
//	})
//	scenarios := gen.Generate([]string{"LLM_01", "LLM_07"})
//
//	orch := orchestrator.New(orchestrator.Options{})
//	defer orch.Close()
//	job, err := orch.Submit(types.EvaluationRequest{
//		AgentConfig: types.AgentConfig{EvaluatedAgentURL: "http://localhost:3000"},
//		Scenarios:   scenarios.Scenarios,
//	})
//
// Progress and per-turn chat messages stream to subscribers attached with
// orch.Subscribe(jobID).
package rogue
