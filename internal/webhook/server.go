package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atorrez/fleetwatch/internal/alerts"
	"github.com/atorrez/fleetwatch/internal/logger"
)

const (
	signatureHeader    = "X-Samsara-Signature"
	timestampHeader    = "X-Samsara-Timestamp"
	timestampTolerance = 5 * time.Minute

	// maxBodyBytes caps webhook payloads; real deliveries are a few KB.
	maxBodyBytes = 1 << 20

	healthCacheTTL  = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

// ConnectionChecker reports whether the upstream telemetry API is
// reachable. *samsara.Client satisfies it.
type ConnectionChecker interface {
	TestConnection(ctx context.Context) bool
}

// Config carries the webhook server's dependencies.
type Config struct {
	Addr    string
	Secret  string
	Router  *alerts.Router
	Gateway ConnectionChecker
	Logger  *zap.Logger
}

// Server is the HTTP endpoint Samsara delivers alerts to.
type Server struct {
	addr    string
	secret  string
	router  *alerts.Router
	gateway ConnectionChecker
	log     *zap.Logger
	engine  *gin.Engine

	healthMu sync.Mutex
	healthAt time.Time
	healthOK bool
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	log := cfg.Logger
	if log == nil {
		log = logger.Named("webhook")
	}

	s := &Server{
		addr:    cfg.Addr,
		secret:  cfg.Secret,
		router:  cfg.Router,
		gateway: cfg.Gateway,
		log:     log,
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.GET("/healthz", s.handleHealthz)
	engine.POST("/v1/webhooks/alerts", s.handleAlert)
	s.engine = engine

	return s
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("webhook server listening", zap.String("addr", s.addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("webhook server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("webhook server shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleAlert(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	timestamp := c.GetHeader(timestampHeader)
	signature := c.GetHeader(signatureHeader)
	if !timestampFresh(timestamp, time.Now(), timestampTolerance) ||
		!verifySignature(s.secret, signature, timestamp, body) {
		s.log.Warn("rejected webhook delivery",
			zap.String("client_ip", c.ClientIP()),
			zap.String("timestamp", timestamp))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "bad signature"})
		return
	}

	evt, err := alerts.ParseEvent(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Ack before delivering; Samsara retries slow consumers.
	go s.router.Dispatch(context.WithoutCancel(c.Request.Context()), evt)

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}

func (s *Server) handleHealthz(c *gin.Context) {
	upstream := s.upstreamOK(c.Request.Context())
	if !upstream {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "upstream": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "upstream": true})
}

// upstreamOK memoizes the gateway connectivity probe so health checks
// cannot hammer the telemetry API.
func (s *Server) upstreamOK(ctx context.Context) bool {
	if s.gateway == nil {
		return true
	}

	s.healthMu.Lock()
	if !s.healthAt.IsZero() && time.Since(s.healthAt) < healthCacheTTL {
		ok := s.healthOK
		s.healthMu.Unlock()
		return ok
	}
	s.healthMu.Unlock()

	ok := s.gateway.TestConnection(ctx)

	s.healthMu.Lock()
	s.healthOK = ok
	s.healthAt = time.Now()
	s.healthMu.Unlock()
	return ok
}
