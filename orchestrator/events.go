package orchestrator

import (
	"github.com/qualifire-dev/rogue/types"
)

// EventType discriminates event envelopes.
type EventType string

const (
	// EventTypeJobUpdate carries a status/progress change.
	EventTypeJobUpdate EventType = "job_update"

	// EventTypeChatUpdate carries one transcript message.
	EventTypeChatUpdate EventType = "chat_update"
)

// Event is the envelope streamed to subscribers.
type Event struct {
	// Type discriminates the payload: job_update or chat_update.
	Type EventType `json:"type"`

	// JobID identifies the job the event belongs to.
	JobID string `json:"job_id"`

	// Data is the payload: a JobUpdate or a types.ChatMessage.
	Data any `json:"data"`
}

// JobUpdate is the payload of job_update events.
type JobUpdate struct {
	// Status is the job's lifecycle state at emission time.
	Status types.JobStatus `json:"status"`

	// Progress is completed_scenarios / total_scenarios.
	Progress float64 `json:"progress"`

	// Error carries the failure reason for failed jobs.
	Error string `json:"error,omitempty"`
}

func jobUpdateEvent(jobID string, update JobUpdate) Event {
	return Event{Type: EventTypeJobUpdate, JobID: jobID, Data: update}
}

func chatUpdateEvent(jobID string, msg types.ChatMessage) Event {
	return Event{Type: EventTypeChatUpdate, JobID: jobID, Data: msg}
}
