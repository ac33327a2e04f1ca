// Package health provides reachability and dependency checks for the
// evaluation engine: the target agent endpoint, the judge LLM API, and
// local files the configuration points at.
//
// Checks return types.HealthStatus values; Combine aggregates them with
// unhealthy > degraded > healthy priority, so a single unreachable
// dependency surfaces at the top level.
package health
