package jobs

import (
	"context"
	"encoding/json"
	"time"

	"ovation/internal/logger"
	"ovation/internal/messaging"
	"ovation/internal/models"
	"ovation/internal/service"

	"github.com/nats-io/stan.go"
)

// PaymentConsumer finalizes orders from payment.completed messages. It backs
// up the gateway webhook: whichever signal arrives first wins and the other
// becomes a no-op.
type PaymentConsumer struct {
	orders *service.OrderService
	nats   *messaging.NATSClient
	sub    stan.Subscription
}

func NewPaymentConsumer(orders *service.OrderService, nats *messaging.NATSClient) *PaymentConsumer {
	return &PaymentConsumer{orders: orders, nats: nats}
}

func (c *PaymentConsumer) Start() error {
	sub, err := c.nats.SubscribeQueue(models.EventPaymentReceived, "reaper", c.handle)
	if err != nil {
		return err
	}
	c.sub = sub
	return nil
}

func (c *PaymentConsumer) handle(msg *stan.Msg) {
	var event models.PaymentCompletedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Get().Error("Failed to decode payment event", "error", err)
		msg.Ack()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := c.orders.Finalize(ctx, event.PaymentID); err != nil {
		// No ack; redelivery retries the finalization.
		logger.Get().Error("Failed to finalize payment from event",
			"payment_id", event.PaymentID, "error", err)
		return
	}
	msg.Ack()
}

func (c *PaymentConsumer) Stop() {
	if c.sub != nil {
		if err := c.sub.Close(); err != nil {
			logger.Get().Warn("Failed to close subscription", "error", err)
		}
	}
}
