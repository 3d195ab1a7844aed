package grpcserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sbilibin2017/gw-todo/internal/logger"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const defaultCheckInterval = 10 * time.Second

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server exposes grpc.health.v1.Health for one service. The serving status
// follows the result of periodic database pings.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	db         Pinger
	service    string
	interval   time.Duration
}

// Opt configures a Server.
type Opt func(*Server)

// WithCheckInterval sets how often the database is pinged.
func WithCheckInterval(d time.Duration) Opt {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

// New creates a health server listening on addr.
func New(addr, service string, db Pinger, opts ...Opt) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	s := &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		db:         db,
		service:    service,
		interval:   defaultCheckInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	return s.listener.Addr().String()
}

// Serve runs the gRPC server until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.refresh(ctx)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watch(watchCtx)

	logger.Log.Infow("gRPC health server listening", "addr", s.Addr(), "service", s.service)
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		err := <-serveErr
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *Server) refresh(ctx context.Context) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if err := s.db.PingContext(ctx); err != nil {
		logger.Log.Warnw("database ping failed", "service", s.service, "err", err)
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.service, status)
}
