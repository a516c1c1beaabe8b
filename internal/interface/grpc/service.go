package grpcservice

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/amalgam-labs/amalgamd/internal/config"
	interfaces "github.com/amalgam-labs/amalgamd/internal/interface"
	"github.com/amalgam-labs/amalgamd/internal/interface/grpc/handlers"
	"github.com/amalgam-labs/amalgamd/internal/interface/grpc/interceptors"
	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	grpchealth "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	tlsKeyFile  = "key.pem"
	tlsCertFile = "cert.pem"
	tlsFolder   = "tls"
)

type service struct {
	config        Config
	appConfig     *config.Config
	server        *http.Server
	grpcServer    *grpc.Server
	healthSvc     *health.Server
	readinessSvc  *interceptors.ReadinessService
	appSvcStarted atomic.Bool
}

func NewService(svcConfig Config, appConfig *config.Config) (interfaces.Service, error) {
	if err := svcConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service config: %s", err)
	}
	if err := appConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid app config: %s", err)
	}

	if !svcConfig.insecure() {
		if err := generateOperatorTLSKeyCert(
			svcConfig.tlsDatadir(), svcConfig.TLSExtraIPs, svcConfig.TLSExtraDomains,
		); err != nil {
			return nil, err
		}
		log.Debugf("generated TLS key pair at path: %s", svcConfig.tlsDatadir())
	}

	return &service{
		config:    svcConfig,
		appConfig: appConfig,
	}, nil
}

func (s *service) Start() error {
	if err := s.start(); err != nil {
		return err
	}
	log.Infof("started listening at %s", s.config.address())

	return s.startAppServices()
}

func (s *service) Stop() {
	s.stop()
	log.Info("shutdown service")
}

func (s *service) start() error {
	tlsConfig, err := s.config.tlsConfig()
	if err != nil {
		return err
	}

	if err := s.newServer(tlsConfig); err != nil {
		return err
	}

	if s.config.insecure() {
		// nolint:all
		go s.server.ListenAndServe()
	} else {
		// nolint:all
		go s.server.ListenAndServeTLS("", "")
	}

	return nil
}

func (s *service) stop() {
	if s.appSvcStarted.CompareAndSwap(true, false) {
		if s.readinessSvc != nil {
			s.readinessSvc.MarkAppServiceStopped()
		}
		if s.healthSvc != nil {
			s.healthSvc.Shutdown()
		}
		appSvc, _ := s.appConfig.AppService()
		if appSvc != nil {
			appSvc.Stop()
		}
	}

	// Hard-close HTTP listeners/conns first to avoid mixed HTTP/gRPC window.
	if s.server != nil {
		_ = s.server.Close()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
}

func (s *service) startAppServices() error {
	if !s.appSvcStarted.CompareAndSwap(false, true) {
		return nil
	}

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to create app service: %w", err)
	}
	if err := appSvc.Start(); err != nil {
		s.appSvcStarted.Store(false)
		return fmt.Errorf("failed to start app service: %w", err)
	}
	log.Info("started app service")

	s.readinessSvc.MarkAppServiceStarted()
	s.healthSvc.SetServingStatus("", grpchealth.HealthCheckResponse_SERVING)
	s.healthSvc.SetServingStatus(handlers.ServiceName, grpchealth.HealthCheckResponse_SERVING)

	log.Info("amalgam service is now ready")
	return nil
}

func (s *service) newServer(tlsConfig *tls.Config) error {
	otelHandler := otelgrpc.NewServerHandler(
		otelgrpc.WithTracerProvider(otel.GetTracerProvider()),
	)

	s.readinessSvc = interceptors.NewReadinessService()

	prefix, err := auth.AddressPrefix(s.appConfig.ContractAddress)
	if err != nil {
		return fmt.Errorf("failed to derive account address prefix: %s", err)
	}
	verifier := auth.NewVerifier(prefix, s.config.SignatureMaxAge)

	grpcConfig := []grpc.ServerOption{
		interceptors.UnaryInterceptor(s.readinessSvc, verifier),
		interceptors.StreamInterceptor(s.readinessSvc),
		grpc.StatsHandler(otelHandler),
	}
	creds := insecure.NewCredentials()
	if !s.config.insecure() {
		creds = credentials.NewTLS(tlsConfig)
	}
	grpcConfig = append(grpcConfig, grpc.Creds(creds))

	grpcServer := grpc.NewServer(grpcConfig...)

	appSvc, err := s.appConfig.AppService()
	if err != nil {
		return fmt.Errorf("failed to create app service: %w", err)
	}
	appHandler := handlers.NewAmalgamServiceHandler(appSvc, s.config.HeartbeatInterval)
	handlers.RegisterAmalgamServiceServer(grpcServer, appHandler)

	healthSvc := health.NewServer()
	healthSvc.SetServingStatus("", grpchealth.HealthCheckResponse_NOT_SERVING)
	healthSvc.SetServingStatus(handlers.ServiceName, grpchealth.HealthCheckResponse_NOT_SERVING)
	grpchealth.RegisterHealthServer(grpcServer, healthSvc)

	// Creds for grpc gateway reverse proxy.
	gatewayCreds := insecure.NewCredentials()
	if !s.config.insecure() {
		gatewayCreds = credentials.NewTLS(&tls.Config{
			InsecureSkipVerify: true, // #nosec
		})
	}
	conn, err := grpc.NewClient(
		s.config.gatewayAddress(), grpc.WithTransportCredentials(gatewayCreds),
	)
	if err != nil {
		return err
	}

	// Reverse proxy grpc-gateway.
	gwmux := runtime.NewServeMux(append(
		gatewayMuxOptions(),
		runtime.WithHealthzEndpoint(grpchealth.NewHealthClient(conn)),
	)...)
	if err := registerGatewayHandlers(gwmux, handlers.NewAmalgamServiceClient(conn)); err != nil {
		return err
	}

	grpcGateway := http.Handler(gwmux)
	handler := router(grpcServer, grpcGateway)
	mux := http.NewServeMux()

	mux.Handle("/", handler)

	httpServerHandler := http.Handler(mux)
	if s.config.insecure() {
		httpServerHandler = h2c.NewHandler(httpServerHandler, &http2.Server{})
	}

	s.grpcServer = grpcServer
	s.healthSvc = healthSvc
	s.server = &http.Server{
		Addr:      s.config.address(),
		Handler:   httpServerHandler,
		TLSConfig: tlsConfig,
	}

	return nil
}

func gatewayMuxOptions() []runtime.ServeMuxOption {
	return []runtime.ServeMuxOption{
		runtime.WithIncomingHeaderMatcher(incomingHeaderMatcher),
		runtime.WithMarshalerOption(runtime.MIMEWildcard, &runtime.JSONPb{
			MarshalOptions:   protojson.MarshalOptions{EmitUnpopulated: true},
			UnmarshalOptions: protojson.UnmarshalOptions{DiscardUnknown: true},
		}),
	}
}

type gatewayCall func(
	context.Context, *structpb.Struct, ...grpc.CallOption,
) (*structpb.Struct, error)

// registerGatewayHandlers exposes the unary rpcs as POST /v1/<method> taking
// the request document as body, and the queries as GET /v1/query/<name>.
func registerGatewayHandlers(
	mux *runtime.ServeMux, client *handlers.AmalgamServiceClient,
) error {
	routes := []struct {
		path   string
		method string
		call   gatewayCall
	}{
		{"/v1/instantiate", "Instantiate", client.Instantiate},
		{"/v1/execute", "Execute", client.Execute},
		{"/v1/query", "Query", client.Query},
		{"/v1/fund", "Fund", client.Fund},
	}
	for _, route := range routes {
		handler := postHandler(mux, handlers.FullMethod(route.method), route.call)
		if err := mux.HandlePath(http.MethodPost, route.path, handler); err != nil {
			return fmt.Errorf("failed to register gateway route %s: %s", route.path, err)
		}
	}

	return mux.HandlePath(
		http.MethodGet, "/v1/query/{query}",
		func(w http.ResponseWriter, r *http.Request, params map[string]string) {
			_, outbound := runtime.MarshalerForRequest(mux, r)
			req, err := structpb.NewStruct(map[string]any{
				params["query"]: map[string]any{},
			})
			if err != nil {
				runtime.HTTPError(r.Context(), mux, outbound, w, r, err)
				return
			}
			forward(mux, w, r, handlers.FullMethod("Query"), client.Query, req)
		},
	)
}

func postHandler(mux *runtime.ServeMux, rpc string, call gatewayCall) runtime.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		inbound, outbound := runtime.MarshalerForRequest(mux, r)
		req := &structpb.Struct{}
		if err := inbound.NewDecoder(r.Body).Decode(req); err != nil {
			runtime.HTTPError(r.Context(), mux, outbound, w, r, invalidBodyErr(err))
			return
		}
		forward(mux, w, r, rpc, call, req)
	}
}

// forward relays the request to the grpc server along with the request
// signature headers.
func forward(
	mux *runtime.ServeMux, w http.ResponseWriter, r *http.Request,
	rpc string, call gatewayCall, req *structpb.Struct,
) {
	_, outbound := runtime.MarshalerForRequest(mux, r)
	annotated, err := runtime.AnnotateContext(r.Context(), mux, r, rpc)
	if err != nil {
		runtime.HTTPError(r.Context(), mux, outbound, w, r, err)
		return
	}
	ctx := runtime.NewServerMetadataContext(annotated, runtime.ServerMetadata{})
	resp, err := call(ctx, req)
	if err != nil {
		runtime.HTTPError(ctx, mux, outbound, w, r, err)
		return
	}
	runtime.ForwardResponseMessage(ctx, mux, outbound, w, r, resp)
}

// incomingHeaderMatcher forwards the request signature headers as grpc
// metadata on top of the default ones.
func incomingHeaderMatcher(key string) (string, bool) {
	switch strings.ToLower(key) {
	case auth.PubkeyHeader, auth.SignatureHeader, auth.TimestampHeader:
		return strings.ToLower(key), true
	}
	return runtime.DefaultHeaderMatcher(key)
}

func invalidBodyErr(err error) error {
	return errors.INVALID_REQUEST.New("invalid request body: %s", err)
}

func router(
	grpcServer *grpc.Server, grpcGateway http.Handler,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isOptionRequest(r) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.Header().Add("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			return
		}

		if isHttpRequest(r) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Headers", "*")
			w.Header().Add("Access-Control-Allow-Methods", "POST, GET, OPTIONS")

			grpcGateway.ServeHTTP(w, r)
			return
		}
		grpcServer.ServeHTTP(w, r)
	})
}

func isOptionRequest(req *http.Request) bool {
	return req.Method == http.MethodOptions
}

func isHttpRequest(req *http.Request) bool {
	return req.Method == http.MethodGet ||
		strings.Contains(req.Header.Get("Content-Type"), "application/json")
}
