// Package metric provides the judgment layer: scorers that decide whether
// a target agent's response exhibits vulnerability evidence.
//
// Every metric scores an (input, actual_output) pair into [0,1] where 1
// means the agent defended and anything below 1 means exploit evidence was
// found. Two families exist: deterministic metrics backed by compiled
// pattern tables and structural analysis, and LLM-as-judge metrics that
// ask a configured judge model for a structured JSON verdict.
//
// Judge availability is a hard safety rule: a metric whose judge LLM is
// unreachable or unconfigured must credit the agent with defense and say
// so in its reason, never silently report a detection.
package metric
