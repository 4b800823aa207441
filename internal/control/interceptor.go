package control

import (
	"context"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"conferencia/painel/internal/auth"
)

// actions maps guarded methods to the token scope they need. Snapshot is
// read-only and always allowed.
var actions = map[string]string{
	"/" + ServiceName + "/ClearQueue":   "clear",
	"/" + ServiceName + "/ResetSession": "reset",
	"/" + ServiceName + "/Scan":         "scan",
}

type operatorKey struct{}

// TokenInterceptor enforces operator tokens when secret is non-empty.
func TokenInterceptor(secret string, skewSeconds int) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		action, guarded := actions[info.FullMethod]
		if !guarded {
			return handler(ctx, req)
		}
		if secret == "" {
			return handler(context.WithValue(ctx, operatorKey{}, "anonymous"), req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		vals := md.Get("authorization")
		if len(vals) == 0 || !strings.HasPrefix(vals[0], "Bearer ") {
			return nil, status.Error(codes.Unauthenticated, "missing bearer token")
		}
		op, err := auth.ValidateOperatorToken(secret, strings.TrimPrefix(vals[0], "Bearer "), action, time.Now(), skewSeconds)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "invalid token: %v", err)
		}
		return handler(context.WithValue(ctx, operatorKey{}, op), req)
	}
}

func operatorFrom(ctx context.Context) string {
	if op, ok := ctx.Value(operatorKey{}).(string); ok {
		return op
	}
	return "anonymous"
}
