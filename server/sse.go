package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleEvaluationEvents streams a job's events as SSE. Each event is named
// by its envelope type (job_update or chat_update) with the full envelope
// as data. The stream ends after the terminal job_update.
func (s *Server) handleEvaluationEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	jobID := chi.URLParam(r, "jobID")
	events, cancel, err := s.opts.Orchestrator.Subscribe(jobID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}

			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Warn("failed to marshal event", "job_id", jobID, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
