package ports

import (
	"context"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
)

// EventPublisher hands events to an at-least-once transport. Consumers must
// tolerate duplicates and reordering.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
