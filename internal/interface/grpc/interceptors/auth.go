package interceptors

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// signedMethods are the rpcs acting on behalf of a sender, the others are
// either read-only or gated by configuration.
var signedMethods = map[string]struct{}{
	amalgamServiceMethodPrefix + "Instantiate": {},
	amalgamServiceMethodPrefix + "Execute":     {},
}

func unarySignatureAuthHandler(verifier *auth.Verifier) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context, req interface{},
		info *grpc.UnaryServerInfo, handler grpc.UnaryHandler,
	) (interface{}, error) {
		ctx, err := checkSignature(ctx, info.FullMethod, req, verifier)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// checkSignature verifies the request signature of the signed methods and
// returns a context carrying the address of the signer.
func checkSignature(
	ctx context.Context, fullMethod string, req interface{}, verifier *auth.Verifier,
) (context.Context, error) {
	if verifier == nil {
		return ctx, nil
	}
	if _, ok := signedMethods[fullMethod]; !ok {
		return ctx, nil
	}

	md, _ := metadata.FromIncomingContext(ctx)
	creds, err := auth.ParseCredentials(
		firstValue(md, auth.PubkeyHeader),
		firstValue(md, auth.SignatureHeader),
		firstValue(md, auth.TimestampHeader),
	)
	if err != nil {
		return nil, errors.UNAUTHENTICATED.Wrap(err)
	}

	body, ok := req.(*structpb.Struct)
	if !ok || body == nil {
		return nil, errors.INVALID_REQUEST.New("missing request")
	}

	method := strings.TrimPrefix(fullMethod, amalgamServiceMethodPrefix)
	signer, err := verifier.Verify(method, *creds, body.AsMap())
	if err != nil {
		if stderrors.Is(err, auth.ErrInvalidSignature) ||
			stderrors.Is(err, auth.ErrExpiredSignature) ||
			stderrors.Is(err, auth.ErrReplayedRequest) {
			return nil, errors.UNAUTHENTICATED.Wrap(err)
		}
		return nil, errors.INTERNAL_ERROR.Wrap(err)
	}

	return auth.WithSigner(ctx, signer), nil
}

func firstValue(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
