package rabbit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/metrics"
	"github.com/Dias-T/tow-dispatch-system/pkg/rabbit"
)

const (
	TowExchange = "tow_topic"

	QueueNotifications = "tow_notifications"
	QueueStatusUpdates = "tow_status_updates"
)

// Broker publishes dispatch events onto the bus. Consumers are push
// gateways and dashboards, delivery is best effort.
type Broker struct {
	client      *rabbit.RabbitMQ
	TowExchange string

	l logger.Logger
}

func NewBroker(client *rabbit.RabbitMQ, log logger.Logger) *Broker {
	return &Broker{
		client:      client,
		TowExchange: TowExchange,

		l: log,
	}
}

// публикует уведомление для пользователя или водителя.
// отправляет в exchange 'tow_topic' с ключом 'tow.notify.{event_type}'.
func (b *Broker) Notify(ctx context.Context, msg models.NotificationMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_notification")

	// Проверяем и восстанавливаем соединение
	if err := b.client.EnsureConnection(ctx); err != nil {
		b.l.Error(ctx, "ensure connection failed", err)
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	// ключ маршрутизации, например "tow.notify.DRIVER_ACCEPTED"
	key := fmt.Sprintf("tow.notify.%s", msg.EventType)

	err = retry(3, time.Second, func() error {
		return b.client.Channel.PublishWithContext(
			ctx,
			b.TowExchange, // exchange
			key,           // routing key
			false,         // mandatory
			false,         // immediate
			amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: msg.CorrelationID,
				Body:          body,
				Timestamp:     time.Now(),
			},
		)
	})

	metrics.RecordRabbitMQPublish("dispatch", QueueNotifications, err)

	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to publish notification: %w", err))
	}
	return nil
}

// публикует смену статуса заявки для downstream потребителей.
// отправляет в exchange 'tow_topic' с ключом 'tow.status.{status}'.
func (b *Broker) PublishStatus(ctx context.Context, msg models.RequestStatusMessage) error {
	ctx = wrap.WithAction(ctx, "rabbitmq_publish_status")

	if err := b.client.EnsureConnection(ctx); err != nil {
		b.l.Error(ctx, "ensure connection failed", err)
		return wrap.Error(ctx, err)
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to marshal message: %w", err))
	}

	key := fmt.Sprintf("tow.status.%s", msg.Status)

	err = retry(3, time.Second, func() error {
		return b.client.Channel.PublishWithContext(
			ctx,
			b.TowExchange,
			key,
			false,
			false,
			amqp091.Publishing{
				ContentType:   "application/json",
				CorrelationId: msg.CorrelationID,
				Body:          body,
				Timestamp:     time.Now(),
			},
		)
	})

	metrics.RecordRabbitMQPublish("dispatch", QueueStatusUpdates, err)

	if err != nil {
		return wrap.Error(ctx, fmt.Errorf("failed to publish status update: %w", err))
	}
	return nil
}

func retry(n int, sleep time.Duration, fn func() error) error {
	var err error
	for range n {
		if err = fn(); err == nil {
			return nil
		}
		time.Sleep(sleep)
	}
	return err
}
