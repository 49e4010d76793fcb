// Package httpapi exposes a session over HTTP: document upload, questions,
// history reset, health and Prometheus metrics.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"docqa/internal/assistant"
	"docqa/internal/llm"
	"docqa/internal/loader"
	logpkg "docqa/internal/logger"
	"docqa/internal/metrics"
	"docqa/internal/session"
)

const defaultMaxUploadBytes = 32 << 20

type Option func(*Server)

// WithMaxUploadBytes limits the size of an upload request body.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

type Server struct {
	session        *session.Session
	logger         *zap.Logger
	maxUploadBytes int64
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	assistant.Answer
	Titles []string `json:"citation_titles,omitempty"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Session  string `json:"session"`
	Document string `json:"document,omitempty"`
	Chunks   int    `json:"chunks"`
}

// NewRouter builds the chi router for one session.
func NewRouter(sess *session.Session, logger *zap.Logger, opts ...Option) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{session: sess, logger: logger, maxUploadBytes: defaultMaxUploadBytes}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())

	r.Get("/health", s.health)
	r.Post("/upload", s.upload)
	r.Post("/ask", s.ask)
	r.Post("/reset", s.reset)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Session: s.session.ID()}
	if snap := s.session.Snapshot(); snap != nil {
		resp.Document = snap.FileName
		resp.Chunks = len(snap.Chunks)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "File is too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", "Multipart field \"file\" is required")
		return
	}
	defer file.Close()

	sum, err := s.session.Upload(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		logpkg.FromContext(r.Context(), s.logger).Warn("upload failed",
			zap.String("file", header.Filename),
			zap.Error(err),
		)
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Invalid request body")
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "Question is required")
		return
	}

	if s.session.Snapshot() == nil {
		w.Header().Set("Warning", `199 - "`+session.UserMessage(session.ErrNoDocument)+`"`)
	}

	ans, err := s.session.Ask(r.Context(), req.Question)
	if err != nil {
		logpkg.FromContext(r.Context(), s.logger).Error("ask failed", zap.Error(err))
		s.writeSessionError(w, err)
		return
	}

	resp := askResponse{Answer: ans}
	if ans.FileName != "" {
		for i, c := range ans.Citations {
			resp.Titles = append(resp.Titles, assistant.CitationTitle(i+1, ans.FileName, c.Locator))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) reset(w http.ResponseWriter, _ *http.Request) {
	s.session.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	msg := session.UserMessage(err)
	switch {
	case errors.Is(err, loader.ErrUnsupportedFileType):
		writeError(w, http.StatusUnsupportedMediaType, "unsupported_file_type", msg)
	case errors.Is(err, loader.ErrInvalidFile):
		writeError(w, http.StatusUnprocessableEntity, "invalid_file", msg)
	case errors.Is(err, session.ErrIndexBuild):
		writeError(w, http.StatusBadGateway, "index_failed", msg)
	case errors.Is(err, llm.ErrModelUnavailable):
		writeError(w, http.StatusBadGateway, "model_unavailable", msg)
	case errors.Is(err, assistant.ErrModelCall):
		writeError(w, http.StatusBadGateway, "model_error", msg)
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// jsonRecoverer returns JSON instead of a plain text stacktrace on panic.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits one log line per request and propagates
// X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			ctx := logpkg.With(logpkg.WithContext(r.Context(), logger), zap.String("request_id", requestID))
			reqLogger := logpkg.FromContext(ctx)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
