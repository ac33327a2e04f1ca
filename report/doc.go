// Package report renders evaluation results for humans: a Markdown report
// with overall and per-scenario sections, and a natural-language summary
// generated by the judge LLM with a deterministic fallback.
package report
