// Package server exposes the analyzer over HTTP.
//
// Every path other than /metrics and /healthz accepts a JSON Request body
// and answers 200 with a Report, or 500 with {"Error": "<message>"}.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/tsfeatures"
	"github.com/jward/tsfeatures/internal/observability"
)

// ErrBodyTooLarge is returned when a request body exceeds the configured
// limit.
var ErrBodyTooLarge = errors.New("request body too large")

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

const (
	defaultMaxBodyBytes = 16 << 20
	shutdownGrace       = 10 * time.Second
	idleTimeout         = 120 * time.Second
)

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Error string `json:"Error"`
}

// Server serves analysis requests.
type Server struct {
	analyzer     *tsfeatures.Analyzer
	metrics      *observability.Metrics
	tracer       trace.Tracer
	logger       *slog.Logger
	maxBodyBytes int64
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

// WithMetrics records request outcomes and serves them at /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithTimeouts sets the http.Server read and write timeouts used by
// ListenAndServe. Zero leaves a timeout unset.
func WithTimeouts(read, write time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

// New returns a Server backed by a.
func New(a *tsfeatures.Analyzer, opts ...Option) *Server {
	s := &Server{
		analyzer:     a,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = observability.NewMetrics()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/jward/tsfeatures/internal/server")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handler returns the full route table wrapped in tracing and request ID
// middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/", s.handleProcess)
	return observability.HTTPMiddleware(s.tracer, withRequestID(mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  idleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := s.logger.With("request_id", requestIDFrom(ctx))

	req, err := s.decode(w, r)
	if err != nil {
		s.fail(ctx, w, logger, err)
		return
	}
	logger = logger.With("filename", req.Filename)

	report, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		s.fail(ctx, w, logger, err)
		return
	}

	s.metrics.ObserveSuccess(time.Duration(report.ProcessTime), report.Features.Names())
	logger.InfoContext(ctx, "processed",
		"features", len(report.Features),
		"process_time", time.Duration(report.ProcessTime),
	)
	writeJSON(ctx, w, http.StatusOK, report)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (tsfeatures.Request, error) {
	var req tsfeatures.Request

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, tooLarge.Limit)
		}
		return req, fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func (s *Server) fail(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	s.metrics.ObserveFailure()
	logger.WarnContext(ctx, "request failed", "error", err)
	writeJSON(ctx, w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

type requestIDKey struct{}

// withRequestID tags each request with the caller's X-Request-ID, or a
// fresh UUID, and echoes it in the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
