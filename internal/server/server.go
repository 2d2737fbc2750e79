package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// Server runs the HTTP surface and the gRPC health endpoint until its context ends.
type Server struct {
	httpAddr        string
	grpcAddr        string
	shutdownTimeout time.Duration
	handler         http.Handler
	health          *HealthServer
	logger          *slog.Logger
	// onShutdown runs after both listeners stop accepting, before Run returns.
	onShutdown func(ctx context.Context)
}

type Option func(*Server)

func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// OnShutdown registers the drain hook (queue shutdown, preview release).
func OnShutdown(fn func(ctx context.Context)) Option {
	return func(s *Server) { s.onShutdown = fn }
}

func New(httpAddr, grpcAddr string, handler http.Handler, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		httpAddr:        httpAddr,
		grpcAddr:        grpcAddr,
		shutdownTimeout: 15 * time.Second,
		handler:         handler,
		health:          NewHealthServer(logger),
		logger:          logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.httpAddr)
	if err != nil {
		return fmt.Errorf("listen http %s: %w", s.httpAddr, err)
	}
	grpcLis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("listen grpc %s: %w", s.grpcAddr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 2)
	go func() {
		s.logger.Info("http serving", "addr", httpLis.Addr().String())
		if err := srv.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http serve: %w", err)
		}
	}()
	go func() {
		if err := s.health.Serve(grpcLis); err != nil {
			errc <- fmt.Errorf("grpc serve: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}

	s.logger.Info("shutting down", "timeout", s.shutdownTimeout.String())
	s.health.MarkNotServing()

	shCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shCtx); err != nil {
		s.logger.Warn("http shutdown", "error", err)
	}
	if s.onShutdown != nil {
		s.onShutdown(shCtx)
	}
	s.health.Stop()
	s.logger.Info("stopped")
	return runErr
}
