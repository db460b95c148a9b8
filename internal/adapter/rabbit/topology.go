package rabbit

import (
	"context"
	"fmt"

	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
)

// SetupTopology declares the exchange and queues the dispatcher
// publishes into. Declarations are idempotent, calling this on every
// start is fine.
func (b *Broker) SetupTopology(ctx context.Context) error {
	const op = "Broker.SetupTopology"
	ctx = wrap.WithAction(ctx, "rabbitmq_setup_topology")

	if err := b.client.EnsureConnection(ctx); err != nil {
		return wrap.Error(ctx, err)
	}

	if err := b.client.Channel.ExchangeDeclare(b.TowExchange, "topic", true, false, false, false, nil); err != nil {
		return wrap.Error(ctx, fmt.Errorf("%s: declare exchange failed: %w", op, err))
	}

	bindings := []struct {
		queue string
		key   string
	}{
		{QueueNotifications, "tow.notify.#"},
		{QueueStatusUpdates, "tow.status.#"},
	}

	for _, bind := range bindings {
		q, err := b.client.Channel.QueueDeclare(bind.queue, true, false, false, false, nil)
		if err != nil {
			return wrap.Error(ctx, fmt.Errorf("%s: declare queue %s failed: %w", op, bind.queue, err))
		}

		if err := b.client.Channel.QueueBind(q.Name, bind.key, b.TowExchange, false, nil); err != nil {
			return wrap.Error(ctx, fmt.Errorf("%s: bind queue %s failed: %w", op, bind.queue, err))
		}
	}

	b.l.Info(ctx, "rabbitmq topology declared", "exchange", b.TowExchange)
	return nil
}
