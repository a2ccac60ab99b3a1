package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	// defaultTitle is used when no custom title is configured.
	defaultTitle = "livewatch"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// monitoredPlaceholder is replaced with the number of monitored streamers.
	monitoredPlaceholder = "{{.Monitored}}"

	shutdownTimeout = 5 * time.Second

	readHeaderTimeout = 5 * time.Second
)

// fallbackPage is served when the embedded assets are unavailable.
const fallbackPage = "livewatch is running\n"

// Config configures a [Server].
type Config struct {
	// Port is the TCP port to listen on. 0 picks a free port.
	Port int

	// Assets holds assets/index.html. nil serves a plain-text page.
	Assets fs.FS

	// Title is shown on the running page.
	Title string

	// Monitored is the number of configured streamers reported by /healthz.
	Monitored int

	// LiveCount reports how many streamers are currently live. Optional.
	LiveCount func() int

	// Metrics serves /metrics when non-nil.
	Metrics http.Handler

	Logger *slog.Logger
}

// Server answers liveness probes.
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	cfg       Config
	logger    *slog.Logger
	startedAt time.Time
	now       func() time.Time

	mu         sync.Mutex
	httpServer *http.Server
	addr       net.Addr
}

// NewServer creates a new HTTP [Server]. The server is not started until
// [Server.Start] is called.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		logger:    logger,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics)
	}
	mux.HandleFunc("/", s.handleRunning)
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns once the listener is bound. The server
// keeps running until ctx is cancelled, then shuts down gracefully with a
// 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	s.mu.Lock()
	s.httpServer = httpServer
	s.addr = ln.Addr()
	s.mu.Unlock()

	s.logger.Info("liveness server listening", "addr", ln.Addr().String())

	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// handleRunning serves the static running page for any path not matched by
// a more specific route.
func (s *Server) handleRunning(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Assets == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(fallbackPage))
		return
	}

	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		s.logger.Warn("running page asset missing", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(fallbackPage))
		return
	}

	// apply title substitution with HTML escaping to prevent XSS
	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.NewReplacer(
		titlePlaceholder, html.EscapeString(title),
		monitoredPlaceholder, fmt.Sprint(s.cfg.Monitored),
	).Replace(string(content))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write running page", "error", err)
	}
}

// Health is the /healthz response body.
type Health struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Monitored     int    `json:"monitored"`
	Live          int    `json:"live"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := Health{
		Status:        "ok",
		UptimeSeconds: int64(s.now().Sub(s.startedAt).Seconds()),
		Monitored:     s.cfg.Monitored,
	}
	if s.cfg.LiveCount != nil {
		health.Live = s.cfg.LiveCount()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}
