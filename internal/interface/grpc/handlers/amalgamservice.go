package handlers

import (
	"context"
	"time"

	"github.com/amalgam-labs/amalgamd/internal/core/application"
	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/pkg/auth"
	"github.com/amalgam-labs/amalgamd/pkg/errors"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	listenerBufferSize = 100
	defaultHeartbeat   = 10 * time.Second
)

type handler struct {
	svc       application.Service
	heartbeat time.Duration

	eventsListenerHandler *broker[domain.BasketEvent]
}

func NewAmalgamServiceHandler(
	svc application.Service, heartbeat time.Duration,
) AmalgamServiceServer {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	h := &handler{
		svc:                   svc,
		heartbeat:             heartbeat,
		eventsListenerHandler: newBroker[domain.BasketEvent](),
	}

	go h.listenToEvents()

	return h
}

func (h *handler) Instantiate(
	ctx context.Context, req *structpb.Struct,
) (*structpb.Struct, error) {
	var msg application.InstantiateMsg
	r, err := parseRequest(req, &msg)
	if err != nil {
		return nil, err
	}
	if err := authorizeSender(ctx, r.Sender); err != nil {
		return nil, err
	}

	resp, err := h.svc.Instantiate(ctx, r.info(), msg)
	if err != nil {
		return nil, err
	}
	return encode(toResponse(resp))
}

func (h *handler) Execute(
	ctx context.Context, req *structpb.Struct,
) (*structpb.Struct, error) {
	var msg application.ExecuteMsg
	r, err := parseRequest(req, &msg)
	if err != nil {
		return nil, err
	}
	// The cw20 hook moves the tokens of the original owner, not of the
	// notifying token contract.
	account := r.Sender
	if msg.Receive != nil {
		account = msg.Receive.Sender
	}
	if err := authorizeSender(ctx, account); err != nil {
		return nil, err
	}

	resp, err := h.svc.Execute(ctx, r.info(), msg)
	if err != nil {
		return nil, err
	}
	return encode(toResponse(resp))
}

// authorizeSender makes sure the request was signed by the account it acts
// on behalf of.
func authorizeSender(ctx context.Context, account string) errors.Error {
	signer, ok := auth.SignerFromContext(ctx)
	if !ok {
		return errors.UNAUTHENTICATED.New("missing request signature")
	}
	if signer != account {
		return errors.UNAUTHENTICATED.New(
			"request signed by %s can't act on behalf of %s", signer, account,
		).WithMetadata(errors.SignerMetadata{Signer: signer, Sender: account})
	}
	return nil
}

func (h *handler) Query(
	ctx context.Context, req *structpb.Struct,
) (*structpb.Struct, error) {
	var msg application.QueryMsg
	if err := decode(req, &msg); err != nil {
		return nil, err
	}

	resp, err := h.svc.Query(ctx, msg)
	if err != nil {
		return nil, err
	}
	return encode(resp)
}

func (h *handler) Fund(
	ctx context.Context, req *structpb.Struct,
) (*structpb.Struct, error) {
	r, err := parseFundRequest(req)
	if err != nil {
		return nil, err
	}

	if err := h.svc.Fund(ctx, r.Asset, r.Address, r.Amount); err != nil {
		return nil, err
	}
	return encode(map[string]string{
		"asset":   r.Asset.Key(),
		"address": r.Address,
		"amount":  r.Amount.String(),
	})
}

// GetEventStream forwards the committed basket events, optionally filtered by
// type, and sends an empty heartbeat message when idle.
func (h *handler) GetEventStream(req *structpb.Struct, stream grpc.ServerStream) error {
	types, err := parseEventTypes(req)
	if err != nil {
		return err
	}

	listener := newListener[domain.BasketEvent](uuid.NewString(), types, listenerBufferSize)

	h.eventsListenerHandler.pushListener(listener)
	defer h.eventsListenerHandler.removeListener(listener.id)

	timer := time.NewTimer(h.heartbeat)
	defer timer.Stop()

	resetTimer := func() {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(h.heartbeat)
	}

	for {
		select {
		case <-stream.Context().Done():
			return nil
		case ev := <-listener.ch:
			msg, err := encode(ev)
			if err != nil {
				return err
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
			resetTimer()
		case <-timer.C:
			if err := stream.SendMsg(&structpb.Struct{}); err != nil {
				return err
			}
			resetTimer()
		}
	}
}

func (h *handler) listenToEvents() {
	ch, err := h.svc.GetEventsChannel(context.Background())
	if err != nil {
		log.WithError(err).Error("failed to listen to basket events")
		return
	}
	for ev := range ch {
		if !h.eventsListenerHandler.hasListeners() {
			continue
		}
		count := h.eventsListenerHandler.publish(string(ev.Type), ev)
		log.Debugf("forwarded %s event to %d listeners", ev.Type, count)
	}
}
