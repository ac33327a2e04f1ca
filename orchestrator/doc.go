// Package orchestrator runs evaluation jobs. It owns the job registry,
// schedules scenario workers with bounded parallelism, aggregates results,
// and streams progress to subscribers.
//
// Job lifecycle is a strict one-way lattice:
//
//	pending -> running -> (completed | failed | cancelled)
//
// Each job publishes two event kinds to its subscribers: job_update
// (status, progress, optional error) and chat_update (one transcript
// message). Subscribers get a bounded buffer; when a slow subscriber's
// buffer fills, the oldest event is dropped with a warning so producers
// never block. The terminal job_update is always the last event.
//
// Terminal jobs stay queryable until the retention window elapses, then a
// background sweep drops them from the registry. An optional Redis bridge
// mirrors every event to a pub/sub channel for external consumers.
package orchestrator
