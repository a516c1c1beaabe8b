package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/application"
	"github.com/amalgam-labs/amalgamd/internal/infrastructure/db"
	watermillevents "github.com/amalgam-labs/amalgamd/internal/infrastructure/events/watermill"
	osmosisissuer "github.com/amalgam-labs/amalgamd/internal/infrastructure/issuer/osmosis"
	inmemoryledger "github.com/amalgam-labs/amalgamd/internal/infrastructure/ledger/inmemory"
	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	contract = "osmo1basket"
	admin    = "osmo1admin"
	user     = "osmo1user"
	attacker = "osmo1attacker"
)

func newTestHandler(t *testing.T) *handler {
	t.Helper()

	repoManager, err := db.NewService(db.ServiceConfig{
		DataStoreType:   "badger",
		DataStoreConfig: []interface{}{"", nil},
	})
	require.NoError(t, err)

	issuer, err := osmosisissuer.NewTokenIssuer(contract, osmosisissuer.DefaultSubdenom)
	require.NoError(t, err)

	svc, err := application.NewService(
		contract, repoManager, inmemoryledger.NewLedger(), issuer,
		watermillevents.NewEventPublisher(10), nil, nil, 0, true,
	)
	require.NoError(t, err)
	require.NoError(t, svc.Start())
	t.Cleanup(svc.Stop)

	return NewAmalgamServiceHandler(svc, time.Hour).(*handler)
}

func mustStruct(t *testing.T, v map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(v)
	require.NoError(t, err)
	return s
}

func attributes(t *testing.T, resp *structpb.Struct) map[string]string {
	t.Helper()
	out := make(map[string]string)
	for _, attr := range resp.AsMap()["attributes"].([]any) {
		kv := attr.(map[string]any)
		out[kv["key"].(string)] = kv["value"].(string)
	}
	return out
}

func instantiate(t *testing.T, h *handler) {
	t.Helper()
	resp, err := h.Instantiate(signedBy(t, admin), mustStruct(t, map[string]any{
		"sender": admin,
		"msg": map[string]any{
			"metadata": map[string]any{
				"name":    "Amalgam",
				"symbol":  "AMG",
				"display": "amg",
				"denom_units": []any{
					map[string]any{"denom": "factory/osmo1basket/amalgam", "exponent": 0},
					map[string]any{"denom": "amg", "exponent": 6},
				},
			},
		},
	}))
	require.NoError(t, err)
	require.Equal(t, "instantiate", attributes(t, resp)["method"])
}

// signedBy returns a context carrying the address verified by the request
// signature check.
func signedBy(t *testing.T, address string) context.Context {
	return auth.WithSigner(t.Context(), address)
}

func TestHandler(t *testing.T) {
	h := newTestHandler(t)
	ctx := t.Context()

	_, err := h.Query(ctx, mustStruct(t, map[string]any{"info": map[string]any{}}))
	require.Error(t, err)
	require.Equal(t, codes.FailedPrecondition, status.Code(err))

	instantiate(t, h)

	resp, err := h.Execute(signedBy(t, admin), mustStruct(t, map[string]any{
		"sender": admin,
		"msg": map[string]any{
			"add_component": map[string]any{
				"token":          map[string]any{"native": "uatom"},
				"weight":         "2",
				"withdrawal_tax": 100,
			},
		},
	}))
	require.NoError(t, err)
	require.Equal(t, "add_component", attributes(t, resp)["action"])

	_, err = h.Fund(ctx, mustStruct(t, map[string]any{
		"asset":   map[string]any{"native": "uatom"},
		"address": user,
		"amount":  "100",
	}))
	require.NoError(t, err)

	resp, err = h.Execute(signedBy(t, user), mustStruct(t, map[string]any{
		"sender": user,
		"funds":  []any{map[string]any{"denom": "uatom", "amount": "10"}},
		"msg":    map[string]any{"deposit": map[string]any{}},
	}))
	require.NoError(t, err)
	attrs := attributes(t, resp)
	require.Equal(t, "deposit", attrs["action"])
	require.Equal(t, "20", attrs["mint_amount"])
	messages := resp.AsMap()["messages"].([]any)
	require.NotEmpty(t, messages)
	require.Contains(t, messages[0], "stargate")

	resp, err = h.Query(ctx, mustStruct(t, map[string]any{"info": map[string]any{}}))
	require.NoError(t, err)
	require.Equal(t, admin, resp.AsMap()["admin"])
	require.Equal(t, "factory/osmo1basket/amalgam", resp.AsMap()["denom"])

	resp, err = h.Query(ctx, mustStruct(t, map[string]any{"components": map[string]any{}}))
	require.NoError(t, err)
	require.Len(t, resp.AsMap()["components"], 1)

	t.Run("errors", func(t *testing.T) {
		_, err := h.Execute(signedBy(t, user), mustStruct(t, map[string]any{
			"sender": user,
			"msg": map[string]any{
				"update_admin": map[string]any{"admin": user},
			},
		}))
		require.Equal(t, codes.PermissionDenied, status.Code(err))

		_, err = h.Execute(ctx, mustStruct(t, map[string]any{"msg": map[string]any{}}))
		require.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = h.Execute(signedBy(t, user), mustStruct(t, map[string]any{
			"sender": user,
			"msg": map[string]any{
				"withdraw": map[string]any{"asset": map[string]any{"native": "uosmo"}},
			},
		}))
		require.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = h.Fund(ctx, mustStruct(t, map[string]any{}))
		var structuredErr errors.Error
		require.ErrorAs(t, err, &structuredErr)
		require.Equal(t, "INVALID_REQUEST", structuredErr.CodeName())
	})
}

func TestSenderAuthentication(t *testing.T) {
	h := newTestHandler(t)
	instantiate(t, h)

	takeover := func() *structpb.Struct {
		return mustStruct(t, map[string]any{
			"sender": admin,
			"msg": map[string]any{
				"update_admin": map[string]any{"admin": attacker},
			},
		})
	}

	fixtures := []struct {
		name string
		ctx  context.Context
	}{
		{"unsigned", t.Context()},
		{"signed by another account", signedBy(t, attacker)},
	}
	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			_, err := h.Execute(f.ctx, takeover())
			require.Equal(t, codes.Unauthenticated, status.Code(err))

			_, err = h.Instantiate(f.ctx, mustStruct(t, map[string]any{
				"sender": admin,
				"msg":    map[string]any{},
			}))
			require.Equal(t, codes.Unauthenticated, status.Code(err))
		})
	}

	t.Run("spend another account funds", func(t *testing.T) {
		_, err := h.Execute(signedBy(t, attacker), mustStruct(t, map[string]any{
			"sender": user,
			"funds":  []any{map[string]any{"denom": "uatom", "amount": "10"}},
			"msg":    map[string]any{"deposit": map[string]any{}},
		}))
		require.Equal(t, codes.Unauthenticated, status.Code(err))

		// The cw20 hook acts for the token owner, not for the notifying token.
		_, err = h.Execute(signedBy(t, "osmo1token"), mustStruct(t, map[string]any{
			"sender": "osmo1token",
			"msg": map[string]any{
				"receive": map[string]any{
					"sender": user,
					"amount": "10",
					"msg":    "eyJkZXBvc2l0Ijp7fX0=",
				},
			},
		}))
		require.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	resp, err := h.Query(t.Context(), mustStruct(t, map[string]any{"info": map[string]any{}}))
	require.NoError(t, err)
	require.Equal(t, admin, resp.AsMap()["admin"])

	_, err = h.Execute(signedBy(t, admin), takeover())
	require.NoError(t, err)
	resp, err = h.Query(t.Context(), mustStruct(t, map[string]any{"info": map[string]any{}}))
	require.NoError(t, err)
	require.Equal(t, attacker, resp.AsMap()["admin"])
}

func TestGetEventStream(t *testing.T) {
	h := newTestHandler(t)
	instantiate(t, h)

	ctx, cancel := context.WithCancel(t.Context())
	stream := &testServerStream{ctx: ctx}
	done := make(chan error, 1)
	go func() {
		done <- h.GetEventStream(
			mustStruct(t, map[string]any{"types": []any{"update_metadata"}}), stream,
		)
	}()
	require.Eventually(t, h.eventsListenerHandler.hasListeners, 5*time.Second, 10*time.Millisecond)

	updateMetadata := func() {
		_, err := h.Execute(signedBy(t, admin), mustStruct(t, map[string]any{
			"sender": admin,
			"msg":    map[string]any{"update_metadata": map[string]any{"name": "Basket"}},
		}))
		require.NoError(t, err)
	}
	updateAdmin := func() {
		_, err := h.Execute(signedBy(t, admin), mustStruct(t, map[string]any{
			"sender": admin,
			"msg":    map[string]any{"update_admin": map[string]any{"admin": admin}},
		}))
		require.NoError(t, err)
	}

	// The subscription to the app events is asynchronous, keep emitting
	// until the first event makes it through.
	require.Eventually(t, func() bool {
		updateAdmin()
		updateMetadata()
		return len(stream.sent()) > 0
	}, 5*time.Second, 50*time.Millisecond)

	for _, msg := range stream.sent() {
		require.Equal(t, "update_metadata", msg.AsMap()["type"])
		require.Equal(t, admin, msg.AsMap()["sender"])
	}

	cancel()
	require.NoError(t, <-done)
	require.False(t, h.eventsListenerHandler.hasListeners())
}

type testServerStream struct {
	ctx  context.Context
	lock sync.Mutex
	msgs []*structpb.Struct
}

func (s *testServerStream) SetHeader(metadata.MD) error  { return nil }
func (s *testServerStream) SendHeader(metadata.MD) error { return nil }
func (s *testServerStream) SetTrailer(metadata.MD)       {}
func (s *testServerStream) Context() context.Context     { return s.ctx }
func (s *testServerStream) RecvMsg(any) error            { return nil }

func (s *testServerStream) SendMsg(m any) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.msgs = append(s.msgs, m.(*structpb.Struct))
	return nil
}

func (s *testServerStream) sent() []*structpb.Struct {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]*structpb.Struct(nil), s.msgs...)
}
