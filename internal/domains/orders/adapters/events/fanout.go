package events

import (
	"context"
	"errors"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/domain"
	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

var _ ports.EventPublisher = Fanout(nil)

// Fanout publishes every event to each publisher and joins their errors.
type Fanout []ports.EventPublisher

func (f Fanout) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, publisher := range f {
		if publisher == nil {
			continue
		}
		if err := publisher.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
