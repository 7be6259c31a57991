package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

// passHandler is a grpc.UnaryHandler that returns ("ok", nil).
func passHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return "ok", nil
}

func panicHandler(ctx context.Context, req interface{}) (interface{}, error) {
	panic("boom")
}

func TestRecoveryInterceptor_PassesThrough(t *testing.T) {
	i := RecoveryInterceptor()
	res, err := i(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/t/ok"}, passHandler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != "ok" {
		t.Errorf("result: got %v, want ok", res)
	}
}

func TestRecoveryInterceptor_PanicBecomesInternal(t *testing.T) {
	i := RecoveryInterceptor()
	res, err := i(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/t/panic"}, panicHandler)
	if res != nil {
		t.Errorf("result: got %v, want nil", res)
	}
	if status.Code(err) != codes.Internal {
		t.Errorf("code: got %v, want Internal", status.Code(err))
	}
}

func TestStreamRecoveryInterceptor_PanicBecomesInternal(t *testing.T) {
	i := StreamRecoveryInterceptor()
	err := i(nil, nil, &grpc.StreamServerInfo{FullMethod: "/t/stream"},
		func(srv interface{}, ss grpc.ServerStream) error { panic("boom") })
	if status.Code(err) != codes.Internal {
		t.Errorf("code: got %v, want Internal", status.Code(err))
	}
}

// startHealth serves a Server over an in-memory listener and returns a client.
func startHealth(t *testing.T) (healthpb.HealthClient, context.CancelFunc) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, lis)
	}()

	conn, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		cancel()
		<-done
	})
	return healthpb.NewHealthClient(conn), cancel
}

func TestHealth_Serving(t *testing.T) {
	client, _ := startHealth(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, svc := range []string{"", ServiceName} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("Check(%q): %v", svc, err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Errorf("Check(%q): got %v, want SERVING", svc, resp.GetStatus())
		}
	}
}

func TestHealth_UnknownService(t *testing.T) {
	client, _ := startHealth(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "other"})
	if status.Code(err) != codes.NotFound {
		t.Errorf("code: got %v, want NotFound", status.Code(err))
	}
}

func TestHealth_ShutdownStopsServing(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	srv := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	cancel()
	select {
	case err := <-done:
		if err != nil && err != grpc.ErrServerStopped {
			t.Errorf("Serve: got %v", err)
		}
	case <-time.After(stopTimeout + time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	resp, err := srv.health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check after shutdown: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status after shutdown: got %v, want NOT_SERVING", resp.GetStatus())
	}
}
