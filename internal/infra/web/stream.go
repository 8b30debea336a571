package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"todo-maistro/internal/domain/model"
	"todo-maistro/internal/infra/metrics"
)

// streamHandler tails a job's event log over SSE. Replay starts from the
// beginning, or after the Last-Event-ID header when the client reconnects.
// The connection closes after the job's terminal event, or with an error
// event once the job's registry entry has expired.
func (s *Server) streamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		exists, err := s.registry.Exists(r.Context(), jobID)
		if err != nil {
			s.writeSSE(w, flusher, "", &model.StreamEvent{Type: model.EventError, Error: "stream unavailable"})
			return
		}
		if !exists {
			s.writeSSE(w, flusher, "", &model.StreamEvent{Type: model.EventError, Error: "job not found"})
			return
		}

		metrics.StreamReaderConnected()
		defer metrics.StreamReaderDisconnected()

		fromSeq := "0"
		if last := r.Header.Get("Last-Event-ID"); last != "" {
			fromSeq = last
		}
		lastWrite := time.Now()

		for {
			select {
			case <-r.Context().Done():
				return
			default:
			}

			events, err := s.events.Read(r.Context(), jobID, fromSeq, 10, s.blockTimeout)
			if err != nil {
				if r.Context().Err() != nil {
					return
				}
				s.writeSSE(w, flusher, "", &model.StreamEvent{Type: model.EventError, JobID: jobID, Error: "stream read failed"})
				return
			}

			for i := range events {
				ev := &events[i]
				fromSeq = ev.Seq
				s.writeSSE(w, flusher, ev.Seq, ev)
				lastWrite = time.Now()
				if ev.Terminal() {
					return
				}
			}
			if len(events) > 0 {
				continue
			}

			// Idle read: the job may have aged out while we were waiting.
			exists, err := s.registry.Exists(r.Context(), jobID)
			if err == nil && !exists {
				s.writeSSE(w, flusher, "", &model.StreamEvent{Type: model.EventError, JobID: jobID, Error: "job expired"})
				return
			}
			if time.Since(lastWrite) >= s.keepalive {
				s.writeSSE(w, flusher, "", &model.StreamEvent{Type: model.EventKeepalive})
				lastWrite = time.Now()
			}
		}
	}
}

func (s *Server) writeSSE(w http.ResponseWriter, flusher http.Flusher, id string, ev *model.StreamEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Msg("encode stream event")
		return
	}
	if id != "" {
		fmt.Fprintf(w, "id: %s\n", id)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
