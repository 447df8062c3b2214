// Package server exposes the guidance services over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/guidify/internal/activity"
	"github.com/joseph-ayodele/guidify/internal/common"
	"github.com/joseph-ayodele/guidify/internal/export"
	"github.com/joseph-ayodele/guidify/internal/metrics"
	"github.com/joseph-ayodele/guidify/internal/pipeline"
	"github.com/joseph-ayodele/guidify/internal/services/career"
	"github.com/joseph-ayodele/guidify/internal/services/psychometric"
	"github.com/joseph-ayodele/guidify/internal/services/recommend"
)

// UserHeader carries the caller's user id. Requests without it are anonymous.
const UserHeader = "X-User-ID"

// Services are the handlers' dependencies. Health may be nil.
type Services struct {
	Pipeline     *pipeline.Processor
	Recommend    *recommend.Service
	Career       *career.Service
	Psychometric *psychometric.Service
	Activity     *activity.Service
	Export       *export.Service
	Metrics      *metrics.Metrics
	Health       func(ctx context.Context) error
}

type Server struct {
	svc            Services
	logger         *slog.Logger
	maxUploadBytes int64
}

type Option func(*Server)

// WithMaxUploadBytes caps multipart uploads.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func New(svc Services, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, logger: logger, maxUploadBytes: 20 << 20}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestContext)
	r.Use(s.accessLog)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.svc.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/marksheet", s.handleMarksheet)
		r.Post("/resume", s.handleResume)

		r.Get("/colleges", s.handleColleges)
		r.Post("/companies", s.handleCompanies)
		r.Get("/courses", s.handleCourses)
		r.Get("/nsqf", s.handleNSQF)

		r.Post("/roadmap", s.handleRoadmap)
		r.Post("/roadmap/stream", s.handleRoadmapStream)

		r.Route("/psychometric", func(r chi.Router) {
			r.Get("/baseline", s.handleBaseline)
			r.Post("/adaptive", s.handleAdaptive)
			r.Post("/quiz", s.handleQuiz)
			r.Post("/analyze", s.handleAnalyze)
		})

		r.Group(func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/activity/login", s.handleLogin)
			r.Post("/activity/event", s.handleEvent)
			r.Post("/activity/tasks", s.handleTasks)
			r.Get("/activity/export", s.handleExport)
			r.Post("/roadmap/complete-step", s.handleCompleteStep)
		})
	})
	return r
}

// requestContext copies the request id and the validated caller id into
// the request context.
func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := common.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		if uid := strings.TrimSpace(r.Header.Get(UserHeader)); uid != "" {
			if v := common.UserID(UserHeader, uid); v != nil {
				s.writeError(w, r, common.InvalidArgumentError(v.Error()))
				return
			}
			ctx = common.WithUserID(ctx, uid)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http.request",
			"request_id", common.RequestIDFromContext(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if common.UserIDFromContext(r.Context()) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "UNAUTHENTICATED", Message: UserHeader + " header is required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.svc.Health != nil {
		if err := s.svc.Health(r.Context()); err != nil {
			s.logger.Warn("http.health.failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
