// Package web exposes the HTTP API: job submission, status polling, the SSE
// event stream and read access to long-term memory.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"todo-maistro/internal/domain/ports/repository"
	"todo-maistro/internal/infra/logging"
	"todo-maistro/internal/usecase"
)

type Server struct {
	chatUC   *usecase.ChatUseCase
	memoryUC *usecase.MemoryUseCase
	registry repository.JobRegistry
	events   repository.EventLog
	queue    repository.JobQueue
	health   func() error

	blockTimeout time.Duration
	keepalive    time.Duration
	corsOrigins  []string
	log          *zerolog.Logger
}

func NewServer(
	chatUC *usecase.ChatUseCase,
	memoryUC *usecase.MemoryUseCase,
	registry repository.JobRegistry,
	events repository.EventLog,
	queue repository.JobQueue,
	health func() error,
	blockTimeout, keepalive time.Duration,
	corsOrigins []string,
	logger *zerolog.Logger,
) *Server {
	if blockTimeout <= 0 {
		blockTimeout = time.Second
	}
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	return &Server{
		chatUC:       chatUC,
		memoryUC:     memoryUC,
		registry:     registry,
		events:       events,
		queue:        queue,
		health:       health,
		blockTimeout: blockTimeout,
		keepalive:    keepalive,
		corsOrigins:  corsOrigins,
		log:          logger,
	}
}

// Router builds the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.corsMiddleware)
	r.Use(s.requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat/new", s.newChatHandler())
		r.Post("/chat/continue", s.continueChatHandler())
		r.Get("/jobs/{jobID}/status", s.jobStatusHandler())
		r.Get("/stream/{jobID}", s.streamHandler())
		r.Post("/todos/get", s.todosHandler())
		r.Post("/profile/get", s.profileHandler())
	})

	r.Get("/healthz", s.healthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if len(s.corsOrigins) > 0 {
			origin = ""
			for _, o := range s.corsOrigins {
				if o == r.Header.Get("Origin") || o == "*" {
					origin = o
					break
				}
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Last-Event-ID")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("took", time.Since(start)).
			Msg("http request")
	})
}
