// Package grpc exposes the internal RPC surface: the standard health service
// behind the service-token interceptor.
package grpc

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

const serviceTokenHeader = "x-service-token"

// ServiceName is the name reported to health checks for the core service.
const ServiceName = "teacherconnect.Core"

// Rejections returned to callers without a valid service token.
var (
	ErrMissingServiceToken = status.Error(codes.Unauthenticated, "missing_service_token")
	ErrInvalidServiceToken = status.Error(codes.PermissionDenied, "invalid_service_token")
)

var errNoServiceToken = errors.New("service auth token required")

type serviceTokenCheck func(ctx context.Context) error

func newServiceTokenCheck(expectedToken string) (serviceTokenCheck, error) {
	if expectedToken == "" {
		return nil, errNoServiceToken
	}
	expected := []byte(expectedToken)
	return func(ctx context.Context) error {
		token := serviceTokenFromMetadata(ctx)
		if token == "" {
			return ErrMissingServiceToken
		}
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			return ErrInvalidServiceToken
		}
		return nil
	}, nil
}

func NewServiceAuthUnaryInterceptor(expectedToken string) (grpc.UnaryServerInterceptor, error) {
	check, err := newServiceTokenCheck(expectedToken)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := check(ctx); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}, nil
}

// NewServiceAuthStreamInterceptor guards streaming methods such as
// Health/Watch with the same token as the unary ones.
func NewServiceAuthStreamInterceptor(expectedToken string) (grpc.StreamServerInterceptor, error) {
	check, err := newServiceTokenCheck(expectedToken)
	if err != nil {
		return nil, err
	}
	return func(srv any, stream grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := check(stream.Context()); err != nil {
			return err
		}
		return handler(srv, stream)
	}, nil
}

// Pinger reports whether a backing dependency is reachable.
type Pinger func(ctx context.Context) error

// NewServer builds the gRPC server. Without a service token the server runs
// unauthenticated, which is only meant for local development.
func NewServer(serviceToken string) (*grpc.Server, *health.Server, error) {
	var opts []grpc.ServerOption
	if serviceToken != "" {
		unary, err := NewServiceAuthUnaryInterceptor(serviceToken)
		if err != nil {
			return nil, nil, err
		}
		stream, err := NewServiceAuthStreamInterceptor(serviceToken)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, grpc.UnaryInterceptor(unary), grpc.StreamInterceptor(stream))
	}
	server := grpc.NewServer(opts...)
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	return server, healthServer, nil
}

// ReportHealth sets the core service status from ping, e.g. the database.
func ReportHealth(ctx context.Context, healthServer *health.Server, ping Pinger) {
	state := healthpb.HealthCheckResponse_SERVING
	if ping != nil {
		if err := ping(ctx); err != nil {
			state = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	healthServer.SetServingStatus(ServiceName, state)
	healthServer.SetServingStatus("", state)
}

func serviceTokenFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(serviceTokenHeader)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
