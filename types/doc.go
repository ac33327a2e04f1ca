// Package types defines the shared data model for the rogue evaluation
// engine: chat transcripts, scenarios, evaluation results, job lifecycle
// types, and target authentication modes.
//
// These types are the wire format of the engine. They serialize to JSON for
// the job-control API, the event stream, and the scenarios file, and every
// other package depends on them rather than on each other.
package types
