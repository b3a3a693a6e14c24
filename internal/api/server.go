// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/ratelimit"
	"github.com/AyuTriphasari/baget/internal/service"
)

// Service interfaces for dependency injection and testing

// SignerInterface defines the claim-authorization operations.
type SignerInterface interface {
	Sign(ctx context.Context, req *service.SignRequest) (*service.SignResponse, error)
}

// RecorderInterface defines the claim-recording operations.
type RecorderInterface interface {
	RecordClaim(ctx context.Context, req *service.RecordRequest) (*models.Winner, error)
}

// GiveawayServiceInterface defines the giveaway read/registration operations.
type GiveawayServiceInterface interface {
	Register(ctx context.Context, req *service.RegisterRequest) (*models.Giveaway, error)
	Get(ctx context.Context, giveawayID string, fresh bool) (*service.GiveawayView, error)
	ListByCreator(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error)
	ListLatest(ctx context.Context, limit int) ([]*models.Giveaway, error)
}

// UserLookupInterface defines the profile-proxy operations.
type UserLookupInterface interface {
	UsersBulkRaw(ctx context.Context, fidsParam string) ([]byte, int, error)
}

// Server represents the HTTP API server.
type Server struct {
	router          *mux.Router
	httpServer      *http.Server
	signer          SignerInterface
	recorder        RecorderInterface
	giveawayService GiveawayServiceInterface
	userLookup      UserLookupInterface
	claimLimiter    *ratelimit.FixedWindowLimiter
	lookupLimiter   *ratelimit.FixedWindowLimiter
	config          *ServerConfig
	logger          *logging.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RateWindow      time.Duration
	ClaimPerWindow  int
	LookupPerWindow int
}

// NewServer creates a new API server instance.
func NewServer(
	config *ServerConfig,
	signer SignerInterface,
	recorder RecorderInterface,
	giveawayService GiveawayServiceInterface,
	userLookup UserLookupInterface,
	logger *logging.Logger,
) *Server {
	s := &Server{
		router:          mux.NewRouter(),
		signer:          signer,
		recorder:        recorder,
		giveawayService: giveawayService,
		userLookup:      userLookup,
		claimLimiter:    ratelimit.NewFixedWindowLimiter(config.ClaimPerWindow, config.RateWindow),
		lookupLimiter:   ratelimit.NewFixedWindowLimiter(config.LookupPerWindow, config.RateWindow),
		config:          config,
		logger:          logger.WithField("component", "api"),
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	// Middleware order matters: logging wraps everything, recovery must see
	// handler panics before logging records the status.
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	// OPTIONS is routed so the CORS middleware sees preflights; mux skips
	// middleware entirely on a method mismatch.

	// Claim endpoints
	api.HandleFunc("/claim", s.handleSignClaim).Methods("POST", "OPTIONS")
	api.HandleFunc("/claim/record", s.handleRecordClaim).Methods("POST", "OPTIONS")

	// Giveaway endpoints
	api.HandleFunc("/giveaways", s.handleRegisterGiveaway).Methods("POST", "OPTIONS")
	api.HandleFunc("/giveaways", s.handleGetGiveaways).Methods("GET")

	// Profile proxy
	api.HandleFunc("/users", s.handleGetUsers).Methods("GET")
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "baget",
	})
}

// allow applies a fixed-window limiter to the request, writing the 429
// response itself on rejection.
func (s *Server) allow(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter) bool {
	if limiter.Allow(ratelimit.ClientKey(r)) {
		return true
	}
	respondError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "too many requests", nil)
	return false
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
