package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/Dave1206/Memory-App-sub000/internal/config"
	"github.com/Dave1206/Memory-App-sub000/internal/service"
	pkglog "github.com/Dave1206/Memory-App-sub000/pkg/log"
)

// ConfluentConsumer implements DomainEventConsumer using confluent-kafka-go.
// The REST tier publishes one event per domain action (new post, reaction,
// friend request, event invite); this consumer feeds them to the
// notification fanout.
type ConfluentConsumer struct {
	consumer *kafka.Consumer
	topic    string
	notify   service.NotificationService
	doneCh   chan struct{}
}

func NewConfluentConsumer(cfg config.KafkaConfig, notify service.NotificationService) (*ConfluentConsumer, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.GroupID,
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	return &ConfluentConsumer{
		consumer: c,
		topic:    cfg.Topic,
		notify:   notify,
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins consuming domain events from Kafka.
func (cc *ConfluentConsumer) Start(ctx context.Context) error {
	if err := cc.consumer.Subscribe(cc.topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", cc.topic, err)
	}

	l := pkglog.L()
	l.Info().Str("topic", cc.topic).Msg("domain event consumer started")

	go cc.consumeLoop(ctx)

	return nil
}

func (cc *ConfluentConsumer) consumeLoop(ctx context.Context) {
	l := pkglog.L()
	defer close(cc.doneCh)

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("domain event consumer shutting down")
			return
		default:
			msg, err := cc.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				if err.(kafka.Error).Code() == kafka.ErrTimedOut {
					continue
				}
				l.Error().Err(err).Msg("domain event consumer error")
				continue
			}

			cc.processMessage(context.WithoutCancel(ctx), msg)
		}
	}
}

func (cc *ConfluentConsumer) processMessage(ctx context.Context, msg *kafka.Message) {
	l := pkglog.L()

	var ev service.DomainEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		l.Error().Err(err).Msg("failed to unmarshal domain event")
		return
	}

	if err := cc.notify.HandleDomainEvent(ctx, &ev); err != nil {
		l.Error().Err(err).Str(pkglog.FieldEventType, ev.Type).Msg("failed to handle domain event")
	}
}

// Close stops the consumer and releases resources.
// It waits for any in-flight processMessage call to complete before closing.
func (cc *ConfluentConsumer) Close() error {
	<-cc.doneCh // wait for in-flight processMessage to complete
	if err := cc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	return nil
}

// Ensure interface is satisfied at compile time.
var _ DomainEventConsumer = (*ConfluentConsumer)(nil)
