package grpc

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func TestServiceAuthInterceptor(t *testing.T) {
	if _, err := NewServiceAuthUnaryInterceptor(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
	interceptor, err := NewServiceAuthUnaryInterceptor("secret")
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) { return "ok", nil }

	cases := []struct {
		name string
		md   metadata.MD
		want error
	}{
		{"missing", metadata.MD{}, ErrMissingServiceToken},
		{"wrong", metadata.Pairs(serviceTokenHeader, "nope"), ErrInvalidServiceToken},
		{"valid", metadata.Pairs(serviceTokenHeader, " secret "), nil},
	}
	for _, tc := range cases {
		ctx := metadata.NewIncomingContext(context.Background(), tc.md)
		_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{}, handler)
		if err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestHealthWatchNeedsServiceToken(t *testing.T) {
	if _, err := NewServiceAuthStreamInterceptor(""); err == nil {
		t.Fatalf("expected error for empty token")
	}
	server, _, err := NewServer("secret")
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	client := healthpb.NewHealthClient(dial(t, server))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	watch, err := client.Watch(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if _, err := watch.Recv(); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	authed := metadata.AppendToOutgoingContext(ctx, serviceTokenHeader, "secret")
	watch, err = client.Watch(authed, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	resp, err := watch.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected serving, got %v", resp.GetStatus())
	}
}

func dial(t *testing.T, server *grpc.Server) *grpc.ClientConn {
	t.Helper()
	listener := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)
	conn, err := grpc.Dial("bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return listener.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestHealthBehindServiceToken(t *testing.T) {
	server, healthServer, err := NewServer("secret")
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	client := healthpb.NewHealthClient(dial(t, server))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName}); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}

	authed := metadata.AppendToOutgoingContext(ctx, serviceTokenHeader, "secret")
	resp, err := client.Check(authed, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected serving, got %v", resp.GetStatus())
	}

	ReportHealth(ctx, healthServer, func(context.Context) error { return errors.New("db down") })
	resp, err = client.Check(authed, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected not serving, got %v", resp.GetStatus())
	}
}
