// Package app hosts the expert finder: the HTTP query and sign-in surface
// plus a gRPC health endpoint for orchestration probes.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/louisbranch/expertfinder/internal/platform/timeouts"
	"github.com/louisbranch/expertfinder/internal/services/expertfinder/api/httpapi"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	defaultHTTPAddr        = ":8095"
	defaultCleanupInterval = 5 * time.Minute

	// HealthService is the service name reported by the health server.
	HealthService = "expertfinder.v1.Search"
)

// RuntimeConfig is the resolved process configuration.
type RuntimeConfig struct {
	Port     int
	HTTPAddr string

	TenantID          string
	ClientID          string
	ClientSecret      string
	DirectoryURL      string
	DirectoryTokenURL string
	DirectoryScopes   []string

	OAuthAuthURL     string
	OAuthTokenURL    string
	OAuthRedirectURL string
	OAuthScopes      []string
	StateSecret      string

	StoreConnection string
	StoreTable      string
	DBPath          string

	DirectoryConcurrency int
	DirectoryTimeout     time.Duration
	StoreTimeout         time.Duration
	ExchangeTimeout      time.Duration
	VerificationCodeTTL  time.Duration
	CleanupInterval      time.Duration
}

// Server hosts the expert finder.
type Server struct {
	listener     net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	httpListener net.Listener
	httpServer   *http.Server
	components   *components
	cleanup      time.Duration
}

// New wires the pipeline and opens both listeners.
func New(ctx context.Context, cfg RuntimeConfig) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, fmt.Errorf("token database path is required")
	}
	if strings.TrimSpace(cfg.StoreConnection) == "" {
		return nil, fmt.Errorf("record store connection is required")
	}
	if strings.TrimSpace(cfg.StoreTable) == "" {
		return nil, fmt.Errorf("record store table is required")
	}
	if cfg.Port < 0 {
		return nil, fmt.Errorf("health port must not be negative")
	}
	if strings.TrimSpace(cfg.HTTPAddr) == "" {
		cfg.HTTPAddr = defaultHTTPAddr
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}

	built, err := compose(ctx, cfg)
	if err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		_ = built.close()
		return nil, fmt.Errorf("listen on port %d: %w", cfg.Port, err)
	}
	httpListener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = listener.Close()
		_ = built.close()
		return nil, fmt.Errorf("listen on http addr %s: %w", cfg.HTTPAddr, err)
	}

	httpServer := &http.Server{
		Handler: httpapi.NewHandler(httpapi.Config{
			Search:  built.search,
			SignIn:  built.broker,
			CodeTTL: cfg.VerificationCodeTTL,
		}),
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(HealthService, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:     listener,
		grpcServer:   grpcServer,
		health:       healthServer,
		httpListener: httpListener,
		httpServer:   httpServer,
		components:   built,
		cleanup:      cfg.CleanupInterval,
	}, nil
}

// Addr returns the gRPC health listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// HTTPAddr returns the HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// Run creates and serves an expert finder until the context ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts both servers and blocks until one stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer s.closeComponents()

	s.components.broker.StartCleanup(serverCtx, s.cleanup, log.Printf)

	log.Printf("expertfinder health server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	log.Printf("expertfinder HTTP server listening at %v", s.httpListener.Addr())
	httpErr := make(chan error, 1)
	go func() {
		httpErr <- s.httpServer.Serve(s.httpListener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}
	shutdownGRPC := func() {
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
	}
	shutdownHTTP := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown HTTP server: %v", err)
		}
	}

	select {
	case <-ctx.Done():
		shutdownHTTP()
		shutdownGRPC()
		<-httpErr
		return handleErr(<-serveErr)
	case err := <-serveErr:
		shutdownHTTP()
		<-httpErr
		return handleErr(err)
	case err := <-httpErr:
		shutdownGRPC()
		grpcErr := <-serveErr
		if errors.Is(err, http.ErrServerClosed) {
			return handleErr(grpcErr)
		}
		if handled := handleErr(grpcErr); handled != nil {
			return handled
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

func (s *Server) closeComponents() {
	if s.components == nil {
		return
	}
	if err := s.components.close(); err != nil {
		log.Printf("close stores: %v", err)
	}
}
