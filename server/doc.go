// Package server exposes the engine over HTTP: evaluation job control
// (create, get, list, cancel), per-job event streaming over SSE, health,
// scenario generation, result summaries, and interview sessions for
// collecting business context.
package server
