package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"todo-maistro/internal/domain"
	"todo-maistro/internal/domain/model"
)

type newChatRequest struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type continueChatRequest struct {
	UserID   string `json:"user_id"`
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

type userRequest struct {
	UserID string `json:"user_id"`
}

type chatResponse struct {
	JobID     string `json:"job_id"`
	ThreadID  string `json:"thread_id"`
	Status    string `json:"status"`
	StreamURL string `json:"stream_url"`
	Detail    string `json:"detail"`
}

type todosResponse struct {
	UserID string       `json:"user_id"`
	Todos  []model.Todo `json:"todos"`
}

func (s *Server) newChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req newChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		job, err := s.chatUC.NewChat(r.Context(), req.UserID, req.Message)
		if err != nil {
			s.writeError(w, err, "Failed to submit chat")
			return
		}
		writeJSON(w, http.StatusAccepted, jobAccepted(job))
	}
}

func (s *Server) continueChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req continueChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		job, err := s.chatUC.ContinueChat(r.Context(), req.ThreadID, req.UserID, req.Message)
		if err != nil {
			s.writeError(w, err, "Failed to submit chat")
			return
		}
		writeJSON(w, http.StatusAccepted, jobAccepted(job))
	}
}

func (s *Server) jobStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.chatUC.JobStatus(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			s.writeError(w, err, "Failed to get job status")
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func (s *Server) todosHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		todos, err := s.memoryUC.ListTodos(r.Context(), req.UserID)
		if err != nil {
			s.writeError(w, err, "Failed to list todos")
			return
		}
		writeJSON(w, http.StatusOK, todosResponse{UserID: req.UserID, Todos: todos})
	}
}

func (s *Server) profileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req userRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		profile, err := s.memoryUC.GetProfile(r.Context(), req.UserID)
		if err != nil {
			s.writeError(w, err, "Failed to get profile")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "healthy"}
		code := http.StatusOK
		if err := s.health(); err != nil {
			resp["status"] = "unhealthy"
			resp["error"] = err.Error()
			code = http.StatusServiceUnavailable
		} else if depth, err := s.queue.Depth(r.Context()); err == nil {
			resp["queue_length"] = depth
		}
		writeJSON(w, code, resp)
	}
}

func jobAccepted(job *model.Job) chatResponse {
	return chatResponse{
		JobID:     job.ID,
		ThreadID:  job.ThreadID,
		Status:    string(job.Status),
		StreamURL: fmt.Sprintf("/api/v1/stream/%s", job.ID),
		Detail:    "job queued; connect to stream_url for the response",
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrExpired):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrQueueFull):
		http.Error(w, "Too many pending jobs", http.StatusServiceUnavailable)
	default:
		s.log.Error().Err(err).Msg(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
