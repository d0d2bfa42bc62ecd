package api

import (
	"errors"
	"net/http"

	"github.com/eloquentai/finchat/internal/auth"
	"github.com/eloquentai/finchat/internal/chat"
	"github.com/eloquentai/finchat/internal/knowledge"
	"github.com/eloquentai/finchat/internal/log"
)

// defaultVersion is reported by the banner when Config.Version is
// unset.
const defaultVersion = "2.0.0"

// Config contains configuration for creating the API server.
type Config struct {
	Logger    log.Logger
	Sessions  *auth.Store      // Required
	Chat      *chat.Service    // Required
	Documents *knowledge.Store // Required; may be in a degraded state

	Version     string   // Reported by the root banner
	CORSOrigins []string // Allowed origins; a single "*" allows any
	TrustProxy  bool     // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateRPS     float64  // Rate limiter sustained tokens/sec per IP (0 = default 1)
	RateBurst   int      // Rate limiter burst size per IP (0 = default 60)
	IsDev       bool     // Disables HSTS for plain-HTTP development
}

// Server is the JSON API HTTP server.
type Server struct {
	mux       *http.ServeMux
	logger    log.Logger
	chat      *chat.Service
	documents *knowledge.Store
	version   string
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if cfg.Chat == nil {
		return nil, errors.New("chat service is required")
	}
	if cfg.Documents == nil {
		return nil, errors.New("document store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	version := cfg.Version
	if version == "" {
		version = defaultVersion
	}

	s := &Server{
		logger:    logger,
		chat:      cfg.Chat,
		documents: cfg.Documents,
		version:   version,
	}

	ah := &authHandler{sessions: cfg.Sessions, logger: logger}
	ch := &chatHandler{svc: cfg.Chat, sessions: cfg.Sessions, vector: cfg.Documents, logger: logger}
	fh := &categoryHandler{svc: cfg.Chat, sessions: cfg.Sessions, logger: logger}
	dh := &documentHandler{store: cfg.Documents, logger: logger}

	mux := http.NewServeMux()

	// Authentication and sessions
	mux.HandleFunc("POST /api/v1/auth/login", ah.login)
	mux.HandleFunc("POST /api/v1/auth/anonymous", ah.anonymous)
	mux.HandleFunc("GET /api/v1/auth/session", ah.session)
	mux.HandleFunc("POST /api/v1/auth/logout", ah.logout)
	mux.HandleFunc("GET /api/v1/auth/stats", ah.stats)
	mux.HandleFunc("GET /api/v1/auth/demo-credentials", ah.demoCredentials)

	// Chat
	mux.HandleFunc("POST /api/v1/chat/message", ch.message)
	mux.HandleFunc("GET /api/v1/chat/conversations/{id}", ch.conversation)
	mux.HandleFunc("DELETE /api/v1/chat/conversations/{id}", ch.deleteConversation)
	mux.HandleFunc("GET /api/v1/chat/health", ch.health)

	// Fintech categories
	mux.HandleFunc("GET /api/v1/categories", fh.list)
	mux.HandleFunc("POST /api/v1/categories/ask", fh.ask)
	mux.HandleFunc("GET /api/v1/categories/{category}/search", fh.search)
	mux.HandleFunc("GET /api/v1/categories/{category}/stats", fh.stats)

	// Knowledge base documents
	mux.HandleFunc("POST /api/v1/documents", dh.upload)
	mux.HandleFunc("POST /api/v1/documents/file", dh.uploadFile)
	mux.HandleFunc("GET /api/v1/documents/search", dh.search)
	mux.HandleFunc("DELETE /api/v1/documents/{id}", dh.delete)
	mux.HandleFunc("GET /api/v1/documents/health", dh.health)

	// Service banner
	mux.HandleFunc("GET /{$}", s.banner)

	// Rate limiter: per-IP token bucket
	rate := cfg.RateRPS
	if rate <= 0 {
		rate = 1.0
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(rate, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → SecurityHeaders → RateLimit → Routes
	// RequestID must precede Logging so request_id is available in log
	// attributes. CORS must precede RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = securityHeadersMiddleware(cfg.IsDev)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Top-level mux separates health probes from the middleware stack,
	// keeping them fast and exempt from rate limiting.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", s.health)
	topMux.HandleFunc("GET /ready", s.ready)
	topMux.Handle("/", handler)

	s.mux = topMux
	return s, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// banner handles GET / with a service description.
func (s *Server) banner(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to EloquentAI Fintech Chatbot",
		"version": s.version,
		"status":  "running",
		"features": []string{
			"AI-powered chat with RAG",
			"Fintech FAQ support",
			"User authentication",
			"Category-based queries",
			"Vector database search",
		},
		"endpoints": map[string]string{
			"auth":       "/api/v1/auth",
			"chat":       "/api/v1/chat",
			"categories": "/api/v1/categories",
			"documents":  "/api/v1/documents",
		},
	}, s.logger)
}
