package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	rgerr "github.com/RealmGate/realmgate-core/pkg/errors"
)

// authorizationMetadataKey is the incoming metadata key carrying the
// bearer token, per the gRPC convention of lowercased header names.
const authorizationMetadataKey = "authorization"

// UnaryServerInterceptor returns a gRPC interceptor that runs the gate on
// every unary call. Calls without credentials proceed anonymously;
// handlers that need a caller check [PrincipalFrom].
func UnaryServerInterceptor(gate *Gate) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, err := authenticateContext(ctx, gate)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns the streaming counterpart of
// [UnaryServerInterceptor].
func StreamServerInterceptor(gate *Gate) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, _ *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := authenticateContext(ss.Context(), gate)
		if err != nil {
			return err
		}
		return handler(srv, &principalStream{ServerStream: ss, ctx: ctx})
	}
}

// authenticateContext runs the gate against incoming metadata, returning
// either a context carrying the principal or a gRPC status error.
func authenticateContext(ctx context.Context, gate *Gate) (context.Context, error) {
	var authorization string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(authorizationMetadataKey); len(values) > 0 {
			authorization = values[0]
		}
	}

	decision := gate.Authenticate(ctx, Credentials{Authorization: authorization})
	switch decision.State {
	case StateAuthenticated:
		return WithPrincipal(ctx, decision.Principal), nil
	case StateRejected:
		return nil, toStatusError(decision.Err)
	default:
		return ctx, nil
	}
}

// toStatusError maps a classified rejection to a gRPC status code using
// the same split as the HTTP layer: 401-class failures become
// Unauthenticated, 400-class become InvalidArgument, everything else
// Internal.
func toStatusError(err error) error {
	rgError, ok := rgerr.AsError(err)
	if !ok {
		return status.Error(codes.Internal, "authentication failed")
	}

	switch http := rgError.HTTPStatus(); {
	case http == 401:
		return status.Error(codes.Unauthenticated, rgError.Message)
	case http < 500:
		return status.Error(codes.InvalidArgument, rgError.Message)
	default:
		return status.Error(codes.Internal, rgError.Message)
	}
}

// principalStream overrides Context so stream handlers see the principal.
type principalStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *principalStream) Context() context.Context {
	return s.ctx
}
