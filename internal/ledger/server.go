package ledger

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
)

// Server handles HTTP requests for the ledger
type Server struct {
	service   *Service
	scheduler *Scheduler
	basicAuth BasicAuth
	mux       *http.ServeMux
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// NewServer creates a new Server with default mux
func NewServer(service *Service, scheduler *Scheduler, basicAuth BasicAuth) *Server {
	return NewServerWithMux(service, scheduler, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(service *Service, scheduler *Scheduler, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		service:   service,
		scheduler: scheduler,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	return credentials[0] == s.basicAuth.Username && credentials[1] == s.basicAuth.Password
}

// userID resolves the acting user: the basic auth username when auth is
// configured, otherwise the X-User-ID header supplied by the host's own
// authentication layer.
func (s *Server) userID(r *http.Request) string {
	if s.basicAuth.Username != "" {
		return s.basicAuth.Username
	}
	return r.Header.Get("X-User-ID")
}

// corsMiddleware adds CORS headers to responses
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Gagyebu"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
// Routes must be registered from most specific to least specific to avoid conflicts
func (s *Server) registerRoutes() {
	// Entries
	s.mux.HandleFunc("GET /api/entries/{id}", s.requireAuth(s.handleGetEntry))
	s.mux.HandleFunc("PUT /api/entries/{id}", s.requireAuth(s.handleUpdateEntry))
	s.mux.HandleFunc("DELETE /api/entries/{id}", s.requireAuth(s.handleDeleteEntry))
	s.mux.HandleFunc("GET /api/entries", s.requireAuth(s.handleListEntries))
	s.mux.HandleFunc("POST /api/entries", s.requireAuth(s.handleCreateEntry))

	// Extraction
	s.mux.HandleFunc("POST /api/interpret", s.requireAuth(s.handleInterpret))
	s.mux.HandleFunc("GET /api/images/{name}", s.requireAuth(s.handleGetImage))
	s.mux.HandleFunc("POST /api/images", s.requireAuth(s.handleUploadImage))

	// Statistics
	s.mux.HandleFunc("GET /api/statistics", s.requireAuth(s.handleStatistics))

	// Recurring definitions and the scheduler
	s.mux.HandleFunc("POST /api/recurring/process", s.requireAuth(s.handleProcessDue))
	s.mux.HandleFunc("POST /api/recurring/{id}/process", s.requireAuth(s.handleProcessOne))
	s.mux.HandleFunc("PUT /api/recurring/{id}", s.requireAuth(s.handleUpdateRecurring))
	s.mux.HandleFunc("DELETE /api/recurring/{id}", s.requireAuth(s.handleDeleteRecurring))
	s.mux.HandleFunc("GET /api/recurring", s.requireAuth(s.handleListRecurring))
	s.mux.HandleFunc("POST /api/recurring", s.requireAuth(s.handleCreateRecurring))
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.corsMiddleware(func(w http.ResponseWriter, r *http.Request) {
			s.mux.ServeHTTP(w, r)
		})(w, r)
	}))
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
