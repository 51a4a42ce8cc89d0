// Package server exposes the chat front end over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

const (
	statusText      = "PayLog AI Bot is running!"
	maxMessageBytes = 64 << 10
	shutdownTimeout = 10 * time.Second
)

// Responder answers one chat message.
type Responder interface {
	Handle(ctx context.Context, userID, text string) string
}

// Options configures a Server.
type Options struct {
	// AllowedOrigins lists the CORS origins; empty allows any origin.
	AllowedOrigins []string
	// Menu is served to clients that render reply buttons.
	Menu [][]string
	// RequestTimeout bounds a single request. Zero means 60 seconds.
	RequestTimeout time.Duration
}

// Server routes HTTP requests to a Responder.
type Server struct {
	responder Responder
	menu      [][]string
	handler   http.Handler
}

// MessageRequest is the body of POST /api/v1/messages.
type MessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// MessageResponse carries the bot's reply.
type MessageResponse struct {
	Reply string `json:"reply"`
}

// MenuResponse lists the reply keyboard rows.
type MenuResponse struct {
	Rows [][]string `json:"rows"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// New builds the router and its middleware.
func New(responder Responder, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	s := &Server{responder: responder, menu: opts.Menu}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(opts.RequestTimeout))

	r.Get("/", s.status)
	r.Get("/health", s.status)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages", s.message)
		r.Get("/menu", s.menuRows)
	})

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})
	s.handler = c.Handler(r)
	return s
}

// Handler returns the root handler, CORS included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting PayLog server", "addr", addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(statusText))
}

// message handles POST /api/v1/messages.
func (s *Server) message(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "Body must be a JSON object with user_id and text")
		return
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "user_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}

	reply := s.responder.Handle(r.Context(), req.UserID, req.Text)
	writeJSON(w, http.StatusOK, MessageResponse{Reply: reply})
}

func (s *Server) menuRows(w http.ResponseWriter, _ *http.Request) {
	rows := s.menu
	if rows == nil {
		rows = [][]string{}
	}
	writeJSON(w, http.StatusOK, MenuResponse{Rows: rows})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}
