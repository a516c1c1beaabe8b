package interceptors

import (
	"context"
	stderrors "errors"

	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// toGrpcError makes sure every error leaving the server carries a grpc status.
// Structured errors already implement GRPCStatus, plain status errors are
// forwarded and anything else becomes an INTERNAL_ERROR.
func toGrpcError(err error) error {
	if err == nil {
		return nil
	}
	var structuredErr errors.Error
	if stderrors.As(err, &structuredErr) {
		return structuredErr
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return errors.INTERNAL_ERROR.Wrap(err)
}

func unaryErrorConverter(
	ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
) (any, error) {
	resp, err := handler(ctx, req)
	if err != nil {
		return nil, toGrpcError(err)
	}
	return resp, nil
}

func streamErrorConverter(
	srv any, stream grpc.ServerStream,
	info *grpc.StreamServerInfo, handler grpc.StreamHandler,
) error {
	return toGrpcError(handler(srv, stream))
}
