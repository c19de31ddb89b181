// Package grpc hosts the gRPC health endpoint used by orchestrators and
// local tooling.
package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	healthPollInitial  = 200 * time.Millisecond
	healthPollMax      = time.Second
	healthCheckTimeout = time.Second
)

// HealthServer serves grpc.health.v1 on its own listener.
type HealthServer struct {
	grpcServer *gogrpc.Server
	health     *health.Server
	listener   net.Listener
	serveErr   chan error
}

// ListenHealth starts a health server on addr. The overall ("") status and
// every named service start as NOT_SERVING until SetServing is called.
func ListenHealth(addr string, services ...string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on health address %s: %w", addr, err)
	}

	grpcServer := gogrpc.NewServer(gogrpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	for _, service := range services {
		healthServer.SetServingStatus(service, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	server := &HealthServer{
		grpcServer: grpcServer,
		health:     healthServer,
		listener:   listener,
		serveErr:   make(chan error, 1),
	}
	go func() {
		server.serveErr <- grpcServer.Serve(listener)
	}()
	return server, nil
}

// Addr returns the bound listener address.
func (s *HealthServer) Addr() net.Addr {
	return s.listener.Addr()
}

// SetServing flips the status of service ("" for the whole server).
func (s *HealthServer) SetServing(service string, serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Stop marks every service NOT_SERVING and drains the server.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	<-s.serveErr
}

// WaitForHealth blocks until the gRPC health check reports SERVING or the context ends.
func WaitForHealth(ctx context.Context, conn *gogrpc.ClientConn, service string, logf func(string, ...any)) error {
	if conn == nil {
		return fmt.Errorf("gRPC connection is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	healthClient := grpc_health_v1.NewHealthClient(conn)
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = healthPollInitial
	policy.MaxInterval = healthPollMax

	check := func() (struct{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		defer cancel()
		response, err := healthClient.Check(callCtx, &grpc_health_v1.HealthCheckRequest{Service: service})
		if err != nil {
			return struct{}{}, err
		}
		if status := response.GetStatus(); status != grpc_health_v1.HealthCheckResponse_SERVING {
			return struct{}{}, fmt.Errorf("status %s", status.String())
		}
		return struct{}{}, nil
	}
	notify := func(err error, _ time.Duration) {
		if logf != nil {
			logf("waiting for gRPC health: %v", err)
		}
	}
	if _, err := backoff.Retry(ctx, check,
		backoff.WithBackOff(policy),
		backoff.WithNotify(notify),
		backoff.WithMaxElapsedTime(0),
	); err != nil {
		return fmt.Errorf("wait for gRPC health: %w", err)
	}
	return nil
}
