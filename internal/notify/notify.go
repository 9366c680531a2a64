// Package notify tells the presentation layer that an order page is stale.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/yz4230/sitehost/internal/entity"
)

// Notifier is invoked after a deployment of an order item changed what the
// order page shows. Implementations must not block the pipeline for long and
// never fail it.
type Notifier interface {
	OrderStale(ctx context.Context, orderID entity.ID)
}

type LogNotifier struct {
	log zerolog.Logger
}

func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) OrderStale(ctx context.Context, orderID entity.ID) {
	n.log.Info().Str("order_id", orderID.String()).Msg("order page is stale")
}

// Multi fans a notification out to every notifier in order.
type Multi []Notifier

func (m Multi) OrderStale(ctx context.Context, orderID entity.ID) {
	for _, n := range m {
		n.OrderStale(ctx, orderID)
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) OrderStale(context.Context, entity.ID) {}
