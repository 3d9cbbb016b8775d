package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xhad/vision-sync/internal/models"
	"github.com/xhad/vision-sync/pkg/analyzer"
)

// Analyzer is the pipeline behind the HTTP API.
type Analyzer interface {
	Analyze(ctx context.Context, req analyzer.Request) (models.AnalysisResponse, error)
	History(ctx context.Context, userID string) ([]models.HistoryItem, error)
}

type Config struct {
	Addr              string
	AllowedOrigins    []string
	AllowOriginSuffix string // any https origin ending in this suffix is allowed
	RateLimit         float64
	RateBurst         int
	MaxUploadBytes    int
	ShutdownTimeout   time.Duration
}

type Server struct {
	config   Config
	analyzer Analyzer
	engine   *gin.Engine
	registry *prometheus.Registry
	logger   *zap.Logger
}

func New(config Config, a Analyzer, logger *zap.Logger) *Server {
	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = 10 * 1024 * 1024
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config:   config,
		analyzer: a,
		registry: prometheus.NewRegistry(),
		logger:   logger.Named("http"),
	}
	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(NewMetricsBuilder(s.registry).Build())
	r.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		AllowOriginFunc:  s.allowOrigin,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	api.GET("/health", s.health)
	api.POST("/analyze", rateLimit(s.config.RateLimit, s.config.RateBurst), s.analyze)
	api.GET("/history/:user_id", s.history)

	return r
}

func (s *Server) allowOrigin(origin string) bool {
	for _, o := range s.config.AllowedOrigins {
		if origin == o {
			return true
		}
	}
	return s.config.AllowOriginSuffix != "" &&
		strings.HasPrefix(origin, "https://") &&
		strings.HasSuffix(origin, s.config.AllowOriginSuffix)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run binds the configured address and serves until ctx is canceled.
// A bind failure is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles connections on ln and shuts down gracefully when ctx is canceled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("server listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", zap.Duration("timeout", s.config.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
