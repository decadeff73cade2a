// Package web provides the HTTP server and handlers for the fleet API.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/viaurbana/frota/internal/catalog"
	"github.com/viaurbana/frota/internal/fleet"
	"github.com/viaurbana/frota/internal/report"
)

// CatalogService runs the validate/commit import pipeline.
type CatalogService interface {
	Validate(ctx context.Context, filename string, data []byte, preferredSheet string) (catalog.Diff, error)
	Commit(ctx context.Context, filename string, data []byte, preferredSheet string) (catalog.CommitSummary, error)
}

// VehicleReader serves catalog lookups for the read endpoints.
type VehicleReader interface {
	ListVehicles(ctx context.Context, status catalog.Status) ([]catalog.Record, error)
	GetVehicle(ctx context.Context, carID string) (catalog.Record, error)
}

// FleetService handles form submissions and summaries.
type FleetService interface {
	SubmitTrip(ctx context.Context, t *fleet.TripLog) error
	ListTrips(ctx context.Context, carID string, limit int) ([]fleet.TripLog, error)
	SubmitFueling(ctx context.Context, f *fleet.Fueling) error
	ListFuelings(ctx context.Context, carID string, limit int) ([]fleet.Fueling, error)
	SubmitInspection(ctx context.Context, ti *fleet.TireInspection) error
	ListInspections(ctx context.Context, carID string, limit int) ([]fleet.TireInspection, error)
	SubmitChecklist(ctx context.Context, c *fleet.Checklist) error
	ListChecklists(ctx context.Context, carID string, limit int) ([]fleet.Checklist, error)
	Efficiency(ctx context.Context, carID string, days int) (fleet.EfficiencySummary, error)
	Dashboard(ctx context.Context, days int) (fleet.DashboardSummary, error)
}

// PhotoStore stores checklist photos and serves temporary links.
type PhotoStore interface {
	Put(ctx context.Context, carID, filename, contentType string, r io.Reader, size int64) (string, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ReportGenerator produces narrative fleet reports.
type ReportGenerator interface {
	Available() bool
	FleetReport(ctx context.Context, snap report.FleetSnapshot) (string, error)
}

// Options carries the tunables the handlers need from configuration.
type Options struct {
	MaxUploadSize   int64
	PreferredSheet  string
	PresignExpiry   time.Duration
	RequestTimeout  time.Duration
	RateLimit       int // requests per minute per IP; 0 disables
	UploadRateLimit int // stricter per-IP limit for catalog uploads; 0 disables
}

// Server is the HTTP server for the fleet application.
type Server struct {
	catalog  CatalogService
	vehicles VehicleReader
	fleet    FleetService
	photos   PhotoStore
	reports  ReportGenerator
	opts     Options
	router   *chi.Mux
	server   *http.Server
	limiters []*rateLimiter
}

// NewServer creates a new Server instance. photos and reports may be nil;
// the corresponding endpoints then answer 503.
func NewServer(cat CatalogService, vehicles VehicleReader, fl FleetService, photos PhotoStore, reports ReportGenerator, opts Options) *Server {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = 20 << 20
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = 15 * time.Minute
	}

	s := &Server{
		catalog:  cat,
		vehicles: vehicles,
		fleet:    fl,
		photos:   photos,
		reports:  reports,
		opts:     opts,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.opts.RequestTimeout))

	// Security hardening
	s.router.Use(securityHeaders)

	if s.opts.RateLimit > 0 {
		limiter := newRateLimiter(s.opts.RateLimit, time.Minute)
		s.limiters = append(s.limiters, limiter)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Catalog import pipeline. Uploads parse whole spreadsheets, so they
		// get their own stricter rate limit.
		r.Route("/catalog", func(r chi.Router) {
			if s.opts.UploadRateLimit > 0 {
				limiter := newRateLimiter(s.opts.UploadRateLimit, time.Minute)
				s.limiters = append(s.limiters, limiter)
				r.Use(limiter.middleware)
			}
			r.Post("/validate", s.handleCatalogValidate)
			r.Post("/commit", s.handleCatalogCommit)
		})

		// Vehicle reads
		r.Get("/vehicles", s.handleListVehicles)
		r.Get("/vehicles/{carID}", s.handleGetVehicle)
		r.Get("/vehicles/{carID}/efficiency", s.handleVehicleEfficiency)

		// Form submissions
		r.Post("/trips", s.handleSubmitTrip)
		r.Get("/trips", s.handleListTrips)
		r.Post("/fuelings", s.handleSubmitFueling)
		r.Get("/fuelings", s.handleListFuelings)
		r.Post("/inspections", s.handleSubmitInspection)
		r.Get("/inspections", s.handleListInspections)
		r.Post("/checklists", s.handleSubmitChecklist)
		r.Get("/checklists", s.handleListChecklists)

		// Photos
		r.Get("/photos/*", s.handlePhotoLink)

		// Summaries
		r.Get("/dashboard/summary", s.handleDashboard)
		r.Post("/reports/fleet", s.handleFleetReport)
	})
}

// handleHealth answers liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server and its rate limiter janitors.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Prevent MIME type sniffing
		w.Header().Set("X-Content-Type-Options", "nosniff")

		// Prevent clickjacking
		w.Header().Set("X-Frame-Options", "DENY")

		// Control referrer information
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// rateLimiter implements a simple token bucket rate limiter per IP.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // requests per window
	window   time.Duration // time window
	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

// newRateLimiter creates a rate limiter with the specified rate per window.
func newRateLimiter(rate int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		stop:     make(chan struct{}),
	}
	// Start cleanup goroutine; close() ends it on server shutdown
	go rl.cleanup()
	return rl
}

// cleanup removes stale visitor entries every minute until close is called.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
		}

		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// close ends the cleanup goroutine. Safe to call more than once.
func (rl *rateLimiter) close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// allow checks if the request should be allowed and consumes a token if so.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		rl.visitors[ip] = &visitor{
			tokens:    rl.rate - 1, // consume one token
			lastReset: time.Now(),
		}
		return true
	}

	// Reset tokens if window has passed
	if time.Since(v.lastReset) > rl.window {
		v.tokens = rl.rate - 1
		v.lastReset = time.Now()
		return true
	}

	// Check if we have tokens left
	if v.tokens <= 0 {
		return false
	}

	v.tokens--
	return true
}

// middleware returns an HTTP middleware that rate limits by IP.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		// Use X-Real-IP if set (by RealIP middleware)
		if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
			ip = realIP
		}

		if !rl.allow(ip) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// writeJSONStatus writes a JSON body with an explicit status code.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}
