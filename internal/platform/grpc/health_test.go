package grpc

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func TestWaitForHealthServing(t *testing.T) {
	server := startHealthServer(t)
	server.SetServing("", true)

	conn := dialHealthServer(t, server.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, conn, "", nil); err != nil {
		t.Fatalf("wait for health: %v", err)
	}
}

func TestWaitForHealthTransitionsToServing(t *testing.T) {
	server := startHealthServer(t, "kalori.ledger")
	conn := dialHealthServer(t, server.Addr().String())

	go func() {
		time.Sleep(200 * time.Millisecond)
		server.SetServing("kalori.ledger", true)
	}()

	var waits []string
	logf := func(format string, args ...any) {
		waits = append(waits, fmt.Sprintf(format, args...))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := WaitForHealth(ctx, conn, "kalori.ledger", logf); err != nil {
		t.Fatalf("wait for health after transition: %v", err)
	}
	if len(waits) == 0 || !strings.Contains(waits[0], "NOT_SERVING") {
		t.Fatalf("wait log = %v, want a NOT_SERVING entry", waits)
	}
}

func TestWaitForHealthRespectsContext(t *testing.T) {
	server := startHealthServer(t)
	conn := dialHealthServer(t, server.Addr().String())

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	if err := WaitForHealth(ctx, conn, "", nil); err == nil {
		t.Fatal("expected context error, got nil")
	}
}

func TestWaitForHealthRequiresConnection(t *testing.T) {
	if err := WaitForHealth(context.Background(), nil, "", nil); err == nil {
		t.Fatal("expected missing connection error")
	}
}

func startHealthServer(t *testing.T, services ...string) *HealthServer {
	t.Helper()
	server, err := ListenHealth("127.0.0.1:0", services...)
	if err != nil {
		t.Fatalf("listen health: %v", err)
	}
	t.Cleanup(server.Stop)
	return server
}

func dialHealthServer(t *testing.T, addr string) *gogrpc.ClientConn {
	t.Helper()

	conn, err := gogrpc.NewClient(addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial health server: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
