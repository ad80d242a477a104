// Package stubapi is an in-memory implementation of the nutrition REST API
// used by tests and for local development.
//
// It issues HS256 bearer tokens for bcrypt-verified users, serves a generic
// food catalog with per-user personalized overrides, keeps food entries and
// computes the daily totals. Any route can be made to fail with Fail.
package stubapi

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/nutritrack/nutrition-core/internal/domain/account"
	"github.com/nutritrack/nutrition-core/internal/domain/nutrition"
	apierrors "github.com/nutritrack/nutrition-core/internal/errors"
	"github.com/nutritrack/nutrition-core/internal/metrics"
	"github.com/nutritrack/nutrition-core/pkg/logger"
)

// Route names, shared with the client's operation names so faults can be
// injected per operation.
const (
	RouteLogin           = "login"
	RouteLogout          = "logout"
	RouteRegister        = "register"
	RouteFoodInfo        = "food-info"
	RouteUserFoodInfo    = "user-food-info"
	RouteDailyLedger     = "daily-ledger"
	RouteAddFoodEntry    = "add-food-entry"
	RouteRemoveFoodEntry = "remove-food-entry"
)

// DefaultPrefix is where the API is mounted.
const DefaultPrefix = "/api/v1"

// Config configures a Server.
type Config struct {
	// Prefix defaults to DefaultPrefix. Use "/" to mount at the root.
	Prefix string
	// JWTSecret signs bearer tokens. A random secret is generated when empty.
	JWTSecret []byte
	// TokenTTL defaults to 24h.
	TokenTTL time.Duration
	// RateLimit is requests per second per client address. Zero disables
	// limiting.
	RateLimit float64
	// RateBurst defaults to twice RateLimit.
	RateBurst int
	// AllowedOrigins enables CORS for browser clients. "*" allows any origin.
	AllowedOrigins []string
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
	Logger     *logger.Logger
	Metrics    *metrics.Collector
	// Now is the server clock, used for token times and the default date.
	Now func() time.Time
}

// Server serves the stub API.
type Server struct {
	prefix     string
	bcryptCost int
	now        func() time.Time
	log        *logger.Logger
	metrics    *metrics.Collector
	limiter    *rateLimiter
	tokens     *tokenIssuer
	store      *store
	router     *mux.Router
	handler    http.Handler

	faultsMu sync.RWMutex
	faults   map[string]int
}

// New creates a server with an empty catalog and no users.
func New(cfg Config) (*Server, error) {
	prefix := strings.TrimRight(cfg.Prefix, "/")
	if cfg.Prefix == "" {
		prefix = DefaultPrefix
	}

	secret := cfg.JWTSecret
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("stubapi: generate jwt secret: %w", err)
		}
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("stubapi: bcrypt cost %d out of range", cost)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		prefix:     prefix,
		bcryptCost: cost,
		now:        now,
		log:        logger.OrDefault(cfg.Logger, "stubapi"),
		metrics:    cfg.Metrics,
		tokens:     newTokenIssuer(secret, ttl, now),
		store:      newStore(),
		faults:     make(map[string]int),
	}

	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit * 2)
			if burst < 1 {
				burst = 1
			}
		}
		s.limiter = newRateLimiter(cfg.RateLimit, burst)
	}

	s.router = s.routes()
	s.handler = s.router
	if c := newCORS(cfg.AllowedOrigins); c != nil {
		s.handler = c.wrap(s.router)
	}
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().UseEncodedPath()

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r
	if s.prefix != "" {
		api = r.PathPrefix(s.prefix).Subrouter()
	}
	api.Use(s.loggingMiddleware, s.metricsMiddleware, s.rateLimitMiddleware, s.faultMiddleware)

	api.HandleFunc("/auth/token", s.handleLogin).Methods(http.MethodPost).Name(RouteLogin)
	api.HandleFunc("/auth/token", s.requireAuth(s.handleLogout)).Methods(http.MethodDelete).Name(RouteLogout)
	api.HandleFunc("/users", s.handleRegister).Methods(http.MethodPost).Name(RouteRegister)

	api.HandleFunc("/food-info/{barcode}", s.handleFoodInfo).Methods(http.MethodGet).Name(RouteFoodInfo)
	api.HandleFunc("/users/food-info/{barcode}", s.requireAuth(s.handleUserFoodInfo)).Methods(http.MethodGet).Name(RouteUserFoodInfo)

	api.HandleFunc("/users/{userId}/food-entries", s.requireAuth(s.handleDailyLedger)).Methods(http.MethodGet).Name(RouteDailyLedger)
	api.HandleFunc("/users/{userId}/food-entries", s.requireAuth(s.handleAddEntry)).Methods(http.MethodPost).Name(RouteAddFoodEntry)
	api.HandleFunc("/users/{userId}/food-entries/{entryId}", s.requireAuth(s.handleRemoveEntry)).Methods(http.MethodDelete).Name(RouteRemoveFoodEntry)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, req, apierrors.ResourceNotFound("route", req.URL.Path))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		s.writeError(w, req, apierrors.BadRequest("Method not allowed").WithDetails("method", req.Method))
	})

	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Prefix returns the path the API is mounted at.
func (s *Server) Prefix() string {
	return s.prefix
}

// =============================================================================
// Fault Injection
// =============================================================================

// Fail makes every request to the named route answer with status. A status of
// zero restores normal handling.
func (s *Server) Fail(route string, status int) {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	if status == 0 {
		delete(s.faults, route)
		return
	}
	s.faults[route] = status
}

// ClearFaults restores normal handling on every route.
func (s *Server) ClearFaults() {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	s.faults = make(map[string]int)
}

func (s *Server) fault(route string) int {
	s.faultsMu.RLock()
	defer s.faultsMu.RUnlock()
	return s.faults[route]
}

// =============================================================================
// Data
// =============================================================================

// AddUser registers a user directly, bypassing the HTTP surface.
func (s *Server) AddUser(email, password, name string) (account.User, error) {
	return s.createUser(email, password, name)
}

func (s *Server) createUser(email, password, name string) (account.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return account.User{}, apierrors.InternalServer(err)
	}
	user, ok := s.store.createUser(email, name, hash)
	if !ok {
		return account.User{}, apierrors.Conflict("Email is already registered").WithDetails("field", "email")
	}
	return user, nil
}

// AddFood puts food into the generic catalog.
func (s *Server) AddFood(food nutrition.FoodInfo) error {
	if strings.TrimSpace(food.Barcode) == "" {
		return fmt.Errorf("stubapi: food barcode is required")
	}
	s.store.putFood(food)
	return nil
}

// Personalize sets userID's own record for food.Barcode.
func (s *Server) Personalize(userID string, food nutrition.FoodInfo) error {
	if strings.TrimSpace(food.Barcode) == "" {
		return fmt.Errorf("stubapi: food barcode is required")
	}
	if _, ok := s.store.userByID(userID); !ok {
		return fmt.Errorf("stubapi: unknown user %q", userID)
	}
	s.store.putOverride(userID, food)
	return nil
}

// Barcodes lists the generic catalog.
func (s *Server) Barcodes() []string {
	return s.store.barcodes()
}
