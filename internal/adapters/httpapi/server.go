package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mikey/phish-guard/internal/metrics"
	"github.com/mikey/phish-guard/internal/ports"
	"go.uber.org/zap"
)

// Config defines the HTTP listener settings
type Config struct {
	ListenAddress   string
	AllowedOrigins  []string
	MaxBodyBytes    int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server exposes the detector over HTTP
type Server struct {
	detector   ports.Detector
	recorder   *metrics.Recorder
	logger     *zap.Logger
	cfg        Config
	httpServer *http.Server
}

// NewServer constructs the API server
func NewServer(detector ports.Detector, recorder *metrics.Recorder, logger *zap.Logger, cfg Config) *Server {
	return &Server{
		detector: detector,
		recorder: recorder,
		logger:   logger,
		cfg:      cfg,
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))
	if s.cfg.MaxBodyBytes > 0 {
		r.Use(limitBody(s.cfg.MaxBodyBytes))
	}

	corsCfg := cors.DefaultConfig()
	if len(s.cfg.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", requestIDHeader}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/healthz", s.handleHealth)
	if s.recorder != nil {
		r.GET("/metrics", gin.WrapH(s.recorder.Handler()))
	}

	r.POST("/predict_url", s.handlePredictURL)
	r.POST("/predict_email", s.handlePredictEmail)
	r.POST("/predict", s.handlePredictEmail)

	return r
}

// Start starts the HTTP listener in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("HTTP API starting", zap.String("address", ln.Addr().String()))

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the listener down, waiting for in-flight requests
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"schema_version": s.detector.SchemaVersion(),
	})
}

func (s *Server) renderError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
