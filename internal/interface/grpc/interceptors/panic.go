package interceptors

import (
	"context"
	"runtime/debug"

	"github.com/amalgam-labs/amalgamd/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

// recoverPanic turns a panic raised while serving a basket rpc into an
// INTERNAL_ERROR reporting the method. The basket state is untouched since
// operations commit only once they return.
func recoverPanic(fullMethod string, err *error) {
	r := recover()
	if r == nil {
		return
	}
	log.WithFields(log.Fields{
		"method": fullMethod,
		"panic":  r,
		"stack":  string(debug.Stack()),
	}).Error("recovered from panic")

	*err = errors.INTERNAL_ERROR.New("failed to serve request").
		WithMetadata(map[string]any{"method": fullMethod})
}

func unaryPanicRecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context, req any,
		info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
	) (resp any, err error) {
		defer recoverPanic(info.FullMethod, &err)
		return handler(ctx, req)
	}
}

func streamPanicRecoveryInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any, stream grpc.ServerStream,
		info *grpc.StreamServerInfo, handler grpc.StreamHandler,
	) (err error) {
		defer recoverPanic(info.FullMethod, &err)
		return handler(srv, stream)
	}
}
