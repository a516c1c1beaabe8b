package interceptors

import (
	"context"
	stderrors "errors"

	"github.com/amalgam-labs/amalgamd/pkg/errors"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

func unaryLogger(
	ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (any, error) {
	log.Debugf("gRPC method: %s", info.FullMethod)
	resp, err := handler(ctx, req)
	logError(ctx, info.FullMethod, err)
	return resp, err
}

func streamLogger(
	srv any, stream grpc.ServerStream,
	info *grpc.StreamServerInfo, handler grpc.StreamHandler,
) error {
	log.Debugf("gRPC method: %s", info.FullMethod)
	err := handler(srv, stream)
	logError(stream.Context(), info.FullMethod, err)
	return err
}

// logError reports internal errors only, the others are returned to the
// caller and are not a server concern.
func logError(ctx context.Context, method string, err error) {
	if err == nil {
		return
	}
	var structuredErr errors.Error
	if !stderrors.As(err, &structuredErr) {
		return
	}
	if structuredErr.Code() == errors.INTERNAL_ERROR.Code {
		structuredErr.Log().WithContext(ctx).
			WithField("method", method).
			Error(structuredErr.Error())
	}
}
