// Package httpserver serves the mail debug endpoints.
package httpserver

import (
	"context"
	stdErr "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const ShutdownTimeout = 15 * time.Second

type Config struct {
	Host        string `envconfig:"MAIL_PANEL_HOST"`
	Port        int    `envconfig:"MAIL_PANEL_PORT" required:"true"`
	TLSCertPath string `envconfig:"MAIL_PANEL_TLS_CERT_PATH"`
	TLSKeyPath  string `envconfig:"MAIL_PANEL_TLS_KEY_PATH"`
	// AllowedOrigins enables CORS for the listed origins.
	AllowedOrigins []string `envconfig:"MAIL_PANEL_ALLOWED_ORIGINS"`
}

type Server struct {
	logger *slog.Logger
	server *http.Server
	config Config

	mx       sync.Mutex
	listener net.Listener
}

// New wraps h with Recovery and Monitoring.
func New(c Config, h http.Handler) *Server {
	logger := slog.Default().WithGroup("mail_panel")
	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%d", c.Host, c.Port),
			Handler:           Monitoring(Recovery(h)),
			ReadHeaderTimeout: 10 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
		logger: logger,
		config: c,
	}
}

// Listen binds the address without serving. Port 0 picks a free port.
func (s *Server) Listen() error {
	_, err := s.listen()
	return err
}

func (s *Server) listen() (net.Listener, error) {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to listen on %s", s.server.Addr)
	}
	s.mx.Lock()
	s.listener = listener
	s.mx.Unlock()
	return listener, nil
}

// Start serves until Close. It calls Listen if needed.
func (s *Server) Start() error {
	s.mx.Lock()
	listener := s.listener
	s.mx.Unlock()

	if listener == nil {
		var err error
		if listener, err = s.listen(); err != nil {
			return err
		}
	}

	s.logger.Info("server starting", slog.String("addr", listener.Addr().String()))

	var err error
	if s.config.TLSCertPath == "" {
		err = s.server.Serve(listener)
	} else {
		err = s.server.ServeTLS(listener, s.config.TLSCertPath, s.config.TLSKeyPath)
	}

	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return errors.Wrap(err, "serve failed")
}

// Run listens synchronously and serves in the background.
func (s *Server) Run() error {
	if err := s.Listen(); err != nil {
		return err
	}
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("server crashed", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	if err != nil {
		err = stdErr.Join(err, errors.Wrap(s.server.Close(), "failed to close server"))
	}
	s.logger.Info("server closed")

	return errors.Wrap(err, "server shutdown failed")
}
