package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Config contains HTTP server configuration
type Config struct {
	BindAddr     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		BindAddr:     "127.0.0.1:8050",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the dashboard HTTP server
type Server struct {
	config *Config
	index  *Index
	logger *zap.Logger
	server *http.Server
}

// New creates a new dashboard server over a loaded provider index
func New(config *Config, index *Index, logger *zap.Logger) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config: config,
		index:  index,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/npi/", s.handlePage)
	mux.HandleFunc("/chart/", s.handleChart)
	mux.HandleFunc("/api/npi/", s.handleProviderJSON)
	mux.HandleFunc("/health", s.handleHealth)

	handler := LoggingMiddleware(logger)(mux)

	s.server = &http.Server{
		Addr:         config.BindAddr,
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting dashboard server",
		zap.String("addr", s.config.BindAddr),
		zap.Int("providers", s.index.Len()))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping dashboard server")
	return s.server.Shutdown(ctx)
}

// handleRoot redirects the landing page to the top-ranked provider
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	http.Redirect(w, r, "/npi/1", http.StatusFound)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(fmt.Sprintf(`{"status":"healthy","providers":%d,"time":"%s"}`,
		s.index.Len(), time.Now().Format(time.RFC3339))))
}
