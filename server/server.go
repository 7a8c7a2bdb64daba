package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PeterSurowski/ai-event-search/health"
	"github.com/PeterSurowski/ai-event-search/observe"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

const requestIDKey = "request_id"

// maxBodyBytes bounds a /tools/call body.
const maxBodyBytes = 1 << 20

// Config configures the HTTP listener.
type Config struct {
	Addr            string        `mapstructure:"addr"`
	Mode            string        `mapstructure:"mode"` // debug|release|test
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CallRequest is the body of POST /tools/call.
type CallRequest struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Meta      CallMeta        `json:"_meta"`
}

// CallMeta carries per-call metadata.
type CallMeta struct {
	AuthToken string `json:"authToken,omitempty"`
}

// Content is one block of tool output.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// CallResult is the body of a completed tool call, successful or not.
type CallResult struct {
	Content           []Content `json:"content"`
	StructuredContent any       `json:"structuredContent,omitempty"`
	IsError           bool      `json:"isError"`
}

// ErrorResponse is the body of a rejected HTTP request.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// Options are the collaborators of a Server.
type Options struct {
	Dispatcher *Dispatcher
	// Health is mounted on /healthz, /readyz and /health when set.
	Health *health.Aggregator
	// Gatherer backs /metrics. Default: prometheus.DefaultGatherer
	Gatherer prometheus.Gatherer
	Logger   observe.Logger
}

// Server is the HTTP front end.
type Server struct {
	engine     *gin.Engine
	dispatcher *Dispatcher
	logger     observe.Logger
	config     Config
}

// New builds the router. gin's mode is process-wide and is set by the caller.
func New(config Config, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = observe.NopLogger()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		engine:     gin.New(),
		dispatcher: opts.Dispatcher,
		logger:     opts.Logger,
		config:     config,
	}
	s.engine.Use(gin.Recovery(), requestID(), s.accessLog())

	s.engine.GET("/tools/list", s.listTools)
	s.engine.POST("/tools/call", s.callTool)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	if opts.Health != nil {
		health.RegisterRoutes(s.engine, opts.Health)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", observe.F("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.logger.Info(shutdownCtx, "http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}

func (s *Server) listTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": Tools()})
}

func (s *Server) callTool(c *gin.Context) {
	var req CallRequest
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(&req); err != nil {
		s.reject(c, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Name == "" {
		s.reject(c, http.StatusBadRequest, "tool name is required")
		return
	}

	result, err := s.dispatcher.Call(c.Request.Context(), req.Name, req.Arguments, req.Meta.AuthToken)
	switch {
	case errors.Is(err, ErrUnknownTool):
		s.reject(c, http.StatusNotFound, fmt.Sprintf("unknown tool %q", req.Name))
		return
	case err != nil:
		c.JSON(http.StatusOK, CallResult{
			Content: []Content{{Type: "text", Text: toolErrorText(err)}},
			IsError: true,
		})
		return
	}

	text, err := json.Marshal(result)
	if err != nil {
		s.logger.Error(c.Request.Context(), "encode tool result", observe.F("tool", req.Name), observe.F("error", err.Error()))
		s.reject(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, CallResult{
		Content:           []Content{{Type: "text", Text: string(text)}},
		StructuredContent: result,
	})
}

func (s *Server) reject(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: msg, RequestID: c.GetString(requestIDKey)})
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if c.Request.URL.Path == "/metrics" || c.Request.URL.Path == "/healthz" {
			return
		}
		s.logger.Info(c.Request.Context(), "http request",
			observe.F("method", c.Request.Method),
			observe.F("path", c.Request.URL.Path),
			observe.F("status", c.Writer.Status()),
			observe.F("duration_ms", float64(time.Since(start).Milliseconds())),
			observe.F("request_id", c.GetString(requestIDKey)),
		)
	}
}
