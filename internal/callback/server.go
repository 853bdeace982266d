// Package callback runs the local HTTP listener that receives the links
// the authentication provider sends by email.
package callback

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nhle/gtdxp-os/internal/auth"
	"github.com/nhle/gtdxp-os/internal/logging"
)

// Routes served by the listener.
const (
	RouteCallback      = "/auth/callback"
	RouteConfirm       = "/auth/confirm"
	RouteVerify        = "/auth/verify"
	RouteResetPassword = "/auth/reset-password"
)

// Received is a tea.Msg carrying a parsed callback link.
type Received struct {
	Route    string
	Callback auth.Callback
}

var page = template.Must(template.New("page").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="font-family: monospace; background: #0d0221; color: #f0f0f0; padding: 3em">
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
</body></html>
`))

type pageData struct {
	Title   string
	Message string
}

// Server is the callback listener.
type Server struct {
	addr     string
	logger   *slog.Logger
	router   chi.Router
	resultCh chan Received

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a listener for addr (host:port). It does not bind
// until Start.
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		addr:     addr,
		logger:   logger,
		resultCh: make(chan Received, 4),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	for _, route := range []string{RouteCallback, RouteConfirm, RouteVerify, RouteResetPassword} {
		r.Get(route, s.handle(route))
	}
	s.router = r
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the address and serves in the background until ctx is done
// or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("callback server already started")
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.server = srv
	s.listener = ln

	go func() {
		s.logger.Info("callback listener started", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("callback listener error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Shutdown(shutdownCtx)
	}()

	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown stops the listener. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down callback listener: %w", err)
	}
	return nil
}

// WaitForCallback returns a tea.Cmd that blocks until a link arrives.
// Call it again after handling a Received to keep listening.
func (s *Server) WaitForCallback() tea.Cmd {
	return func() tea.Msg {
		return <-s.resultCh
	}
}

func (s *Server) handle(route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := logging.FromContext(r.Context())

		cb, err := auth.CallbackFromQuery(r.URL.Query())
		if err != nil {
			logger.Warn("rejected callback link", "route", route, "error", err)
			render(w, http.StatusBadRequest, pageData{
				Title:   "Invalid link",
				Message: "Invalid confirmation link. Request a new email from the terminal.",
			})
			return
		}

		select {
		case s.resultCh <- Received{Route: route, Callback: cb}:
		default:
			logger.Warn("callback dropped, receiver busy", "route", route)
		}

		render(w, http.StatusOK, pageData{
			Title:   "Link received",
			Message: "You can close this tab and return to your terminal.",
		})
	}
}

func render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = page.Execute(w, data)
}

// requestLogger puts a request-scoped logger into the context and logs
// each request once it is served. Query strings carry tokens and are not
// logged.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", middleware.GetReqID(r.Context()))
		ctx := logging.WithLogger(r.Context(), logger)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}
