// Package server exposes the recording controller over HTTP and WebSocket.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/NancyGarg/transcribe-ai/core/auth"
	"github.com/NancyGarg/transcribe-ai/core/recording"
	"github.com/NancyGarg/transcribe-ai/core/transcript"
	"github.com/NancyGarg/transcribe-ai/logger"
	"github.com/NancyGarg/transcribe-ai/model"
)

// Controller is the part of recording.Controller the API drives.
type Controller interface {
	Snapshot() recording.Snapshot
	Recordings() []model.RecordingEntry
	Get(id string) (*model.RecordingEntry, bool)
	Start(ctx context.Context, mode model.RecordingMode) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) (*model.RecordingEntry, error)
	Cancel(ctx context.Context) error
	Delete(ctx context.Context, id string) error
	ClearAll(ctx context.Context) error
	Retranscribe(ctx context.Context, id string) error
	Subscribe(fn func(recording.Event)) func()
}

// AudioPaths resolves the stored audio file of a recording.
type AudioPaths interface {
	PathFor(id string) string
}

// Options configures a Server.
type Options struct {
	Addr         string
	PasswordHash string // bcrypt; empty disables auth
	Tokens       *auth.Tokens
	Palette      transcript.Palette
}

// Server is the HTTP API.
type Server struct {
	ctrl   Controller
	audio  AudioPaths
	opts   Options
	hub    *EventHub
	router *mux.Router
}

// New wires routes for ctrl. The event hub is subscribed to ctrl immediately.
func New(ctrl Controller, audio AudioPaths, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Palette == nil {
		opts.Palette = transcript.LightPalette
	}
	s := &Server{
		ctrl:  ctrl,
		audio: audio,
		opts:  opts,
		hub:   NewEventHub(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) authEnabled() bool {
	return s.opts.PasswordHash != "" && s.opts.Tokens != nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	router.HandleFunc("/api/auth/login", s.LoginHandler).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(s.AuthMiddleware)
	api.HandleFunc("/state", s.StateHandler).Methods(http.MethodGet)
	api.HandleFunc("/recording/start", s.StartHandler).Methods(http.MethodPost)
	api.HandleFunc("/recording/pause", s.PauseHandler).Methods(http.MethodPost)
	api.HandleFunc("/recording/resume", s.ResumeHandler).Methods(http.MethodPost)
	api.HandleFunc("/recording/stop", s.StopHandler).Methods(http.MethodPost)
	api.HandleFunc("/recording/cancel", s.CancelHandler).Methods(http.MethodPost)
	api.HandleFunc("/recordings", s.ListHandler).Methods(http.MethodGet)
	api.HandleFunc("/recordings", s.ClearHandler).Methods(http.MethodDelete)
	api.HandleFunc("/recordings/{id}", s.GetHandler).Methods(http.MethodGet)
	api.HandleFunc("/recordings/{id}", s.DeleteHandler).Methods(http.MethodDelete)
	api.HandleFunc("/recordings/{id}/transcribe", s.TranscribeHandler).Methods(http.MethodPost)
	api.HandleFunc("/recordings/{id}/conversation", s.ConversationHandler).Methods(http.MethodGet)
	api.HandleFunc("/recordings/{id}/audio", s.AudioHandler).Methods(http.MethodGet)

	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(s.AuthMiddleware)
	ws.HandleFunc("/events", s.EventsHandler).Methods(http.MethodGet)

	return router
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run()
	unsubscribe := s.hub.Attach(s.ctrl)
	defer func() {
		unsubscribe()
		s.hub.Stop()
	}()

	httpServer := &http.Server{
		Addr:        s.opts.Addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", s.opts.Addr), logger.Bool("auth", s.authEnabled()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return nil
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
