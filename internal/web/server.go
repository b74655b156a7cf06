package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/elys-network/wpool/internal/accountant"
	"github.com/elys-network/wpool/internal/logger"
	"github.com/elys-network/wpool/internal/state"
	"github.com/elys-network/wpool/internal/types"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var webLogger = logger.GetForComponent("web_server")

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// History serves persisted pool snapshots and statistics.
type History interface {
	PoolHistory(ctx context.Context, id types.PoolID, limit int) ([]types.PoolSnapshot, error)
	PoolStats(ctx context.Context, id types.PoolID) (*state.PoolStats, error)
}

// WebServer exposes the accountant over a JSON API
type WebServer struct {
	router   *mux.Router
	port     string
	acc      *accountant.Accountant
	history  History
	gatherer prometheus.Gatherer
	started  time.Time
	dbHealth func() error
}

type Option func(*WebServer)

// WithHistory enables the persisted history endpoints.
func WithHistory(h History, health func() error) Option {
	return func(ws *WebServer) {
		ws.history = h
		ws.dbHealth = health
	}
}

// WithGatherer selects the registry served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(ws *WebServer) { ws.gatherer = g }
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, acc *accountant.Accountant, opts ...Option) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		acc:      acc,
		gatherer: prometheus.DefaultGatherer,
		started:  time.Now(),
	}
	for _, opt := range opts {
		opt(server)
	}

	server.setupRoutes()
	return server
}

// Handler returns the routed handler, for tests and embedding.
func (ws *WebServer) Handler() http.Handler { return ws.router }

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.HandlerFor(ws.gatherer, promhttp.HandlerOpts{})).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleListPools).Methods("GET")
	api.HandleFunc("/pools", ws.handleDeploy).Methods("POST")
	api.HandleFunc("/pools/{id}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{id}/init", ws.handleInit).Methods("POST")
	api.HandleFunc("/pools/{id}/join", ws.handleJoin).Methods("POST")
	api.HandleFunc("/pools/{id}/exit", ws.handleExit).Methods("POST")
	api.HandleFunc("/pools/{id}/swap", ws.handleSwap).Methods("POST")
	api.HandleFunc("/pools/{id}/query/{kind}", ws.handleQuery).Methods("POST")
	api.HandleFunc("/pools/{id}/spot-price", ws.handleSpotPrice).Methods("GET")
	api.HandleFunc("/pools/{id}/circuit-breakers/{token}", ws.handleCircuitBreaker).Methods("GET")
	api.HandleFunc("/pools/{id}/governance/{action}", ws.handleGovernance).Methods("POST")
	api.HandleFunc("/pools/{id}/history", ws.handleHistory).Methods("GET")
	api.HandleFunc("/pools/{id}/stats", ws.handleStats).Methods("GET")
	api.HandleFunc("/receipts", ws.handleReceipts).Methods("GET")
	api.HandleFunc("/accounts/{account}/balances/{asset}", ws.handleBalance).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server and shuts it down when ctx is done.
func (ws *WebServer) Start(ctx context.Context) error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			webLogger.Error().Err(err).Msg("Web server shutdown failed")
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	// Get runtime memory stats
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false
	dbStatus := "disabled"
	if ws.dbHealth != nil {
		dbStatus = "healthy"
		if err := ws.dbHealth(); err != nil {
			dbStatus = "unhealthy"
			hasErrors = true
		}
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "wpool-accountant",
			"version": "1.0.0",
		},
		"accountant_status": map[string]interface{}{
			"database": dbStatus,
			"pools":    len(ws.acc.PoolIDs()),
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}
	ws.writeJSONResponse(w, statusCode, response)
}

// poolID parses the {id} route variable.
func poolID(r *http.Request) (types.PoolID, error) {
	return parsePoolID(mux.Vars(r)["id"])
}

func parsePoolID(s string) (types.PoolID, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid pool id %q", s)
	}
	return types.PoolID(id), nil
}

// tokenRef parses a token given as an index or an address.
func tokenRef(s string) (types.TokenRef, error) {
	if s == "" {
		return types.TokenRef{}, errors.New("token must be given")
	}
	if i, err := strconv.Atoi(s); err == nil {
		if i < 0 {
			return types.TokenRef{}, fmt.Errorf("invalid token index %d", i)
		}
		return types.TokenIndex(i), nil
	}
	return types.TokenAddress(s), nil
}

func queryLimit(r *http.Request, fallback int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 1000 {
			return parsedLimit
		}
	}
	return fallback
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

// decodeJSON decodes a request body.
func decodeJSON(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// writeError maps a domain error to its status code.
func (ws *WebServer) writeError(w http.ResponseWriter, err error) {
	ws.writeErrorResponse(w, statusFor(err), err.Error())
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
