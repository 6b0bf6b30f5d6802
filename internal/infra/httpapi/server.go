// Package httpapi exposes the assistant, device registry and reminders over
// HTTP and streams state changes to browsers over a websocket.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voice-home/internal/application"
)

type Options struct {
	Addr           string
	AuthToken      string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

type Deps struct {
	Assistant *application.Assistant
	Devices   *application.DeviceRegistry
	Reminders *application.ReminderStore
	Events    *application.Events
	Logger    *slog.Logger
}

type Server struct {
	assistant *application.Assistant
	devices   *application.DeviceRegistry
	reminders *application.ReminderStore
	events    *application.Events
	logger    *slog.Logger
	opts      Options

	router   chi.Router
	server   *http.Server
	done     chan struct{}
	doneOnce sync.Once
}

func NewServer(opts Options, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		assistant: deps.Assistant,
		devices:   deps.Devices,
		reminders: deps.Reminders,
		events:    deps.Events,
		logger:    deps.Logger,
		opts:      opts,
		done:      make(chan struct{}),
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(cors(s.opts.AllowedOrigins))

	limiter := NewRateLimiter(s.opts.RateLimit, s.opts.RateWindow)

	r.Group(func(r chi.Router) {
		r.Use(requireToken(s.opts.AuthToken, s.logger))

		r.Get("/messages", s.listMessages)
		r.Get("/devices", s.listDevices)
		r.Get("/reminders", s.listReminders)
		r.Get("/reminders/next", s.nextReminder)
		r.Get("/voice/settings", s.getVoiceSettings)
		r.Get("/voice/languages", s.listLanguages)
		r.Post("/voice/select", s.selectVoice)
		r.Get("/ws", s.stream)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Middleware)

			r.Post("/chat", s.chat)
			r.Delete("/chat/history", s.resetConversation)
			r.Post("/voice/recognition", s.recognition)
			r.Post("/voice/audio", s.audio)
			r.Put("/voice/settings", s.updateVoiceSettings)

			r.Post("/devices", s.createDevice)
			r.Post("/devices/all", s.setAllDevices)
			r.Post("/devices/{id}/toggle", s.toggleDevice)
			r.Put("/devices/{id}/level", s.setDeviceLevel)
			r.Delete("/devices/{id}", s.removeDevice)

			r.Post("/reminders", s.createReminder)
			r.Post("/reminders/{id}/toggle", s.toggleReminder)
			r.Delete("/reminders/{id}", s.deleteReminder)
		})
	})
	return r
}

// ListenAndServe blocks until the server stops. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server starting", "addr", s.opts.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	return nil
}

// Shutdown closes open event streams and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.doneOnce.Do(func() { close(s.done) })
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := s.server.Close(); err != nil {
			return fmt.Errorf("closing server: %w", err)
		}
	}
	return nil
}
