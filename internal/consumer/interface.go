package consumer

import "context"

// DomainEventConsumer ingests domain events emitted by the REST tier.
type DomainEventConsumer interface {
	Start(ctx context.Context) error
	Close() error
}
