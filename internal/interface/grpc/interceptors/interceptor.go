package interceptors

import (
	"github.com/amalgam-labs/amalgamd/pkg/auth"
	middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"google.golang.org/grpc"
)

// UnaryInterceptor returns the chain of unary interceptors. The panic recovery
// sits right after the logger so that recovered panics are logged as well.
// Requests reach the signature check only once the app service is ready.
func UnaryInterceptor(readiness *ReadinessService, verifier *auth.Verifier) grpc.ServerOption {
	return grpc.UnaryInterceptor(middleware.ChainUnaryServer(
		unaryLogger,
		unaryErrorConverter,
		unaryPanicRecoveryInterceptor(),
		unaryReadinessHandler(readiness),
		unarySignatureAuthHandler(verifier),
	))
}

// StreamInterceptor returns the chain of stream interceptors.
func StreamInterceptor(readiness *ReadinessService) grpc.ServerOption {
	return grpc.StreamInterceptor(middleware.ChainStreamServer(
		streamLogger,
		streamErrorConverter,
		streamPanicRecoveryInterceptor(),
		streamReadinessHandler(readiness),
	))
}
