package watermillevents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/amalgam-labs/amalgamd/internal/core/domain"
	"github.com/amalgam-labs/amalgamd/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

type eventPublisher struct {
	pubsub *gochannel.GoChannel
}

// NewEventPublisher returns an in-process publisher backed by a watermill go
// channel. Events published while nobody is subscribed are dropped and
// delivery order across publishes is not guaranteed.
func NewEventPublisher(bufferSize int64) ports.EventPublisher {
	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: bufferSize,
	}, newLogger())
	return &eventPublisher{pubsub}
}

func (p *eventPublisher) Publish(ctx context.Context, event domain.BasketEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.Id, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return p.pubsub.Publish(domain.BasketTopic, msg)
}

func (p *eventPublisher) Subscribe(ctx context.Context) (<-chan domain.BasketEvent, error) {
	messages, err := p.pubsub.Subscribe(ctx, domain.BasketTopic)
	if err != nil {
		return nil, err
	}

	events := make(chan domain.BasketEvent)
	go func() {
		defer close(events)
		for msg := range messages {
			var event domain.BasketEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				log.WithError(err).Warnf("failed to deserialize event: %s", string(msg.Payload))
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case events <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return events, nil
}

func (p *eventPublisher) Close() {
	//nolint:errcheck
	p.pubsub.Close()
}
