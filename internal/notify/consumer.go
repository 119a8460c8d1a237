package notify

import (
	"context"
	"encoding/json"
	"errors"

	"lottoinsight/internal/model"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

// Consumer sarama consumer-group handler for the notification topic.
// Every message is marked consumed, delivered or not.
type Consumer struct {
	dispatcher *Dispatcher
	log        *logrus.Logger
}

func NewConsumer(dispatcher *Dispatcher, log *logrus.Logger) *Consumer {
	return &Consumer{dispatcher: dispatcher, log: log}
}

func (c *Consumer) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			c.Handle(session.Context(), msg)
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// Handle decodes and dispatches one message.
func (c *Consumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) {
	var ev model.NotificationEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.log.WithFields(logrus.Fields{"topic": msg.Topic, "offset": msg.Offset}).WithError(err).Warn("skip malformed notification")
		return
	}
	if _, err := c.dispatcher.Dispatch(ctx, &ev); err != nil {
		c.log.WithField("event", ev.EventType).WithError(err).Error("dispatch notification")
	}
}

// Run consumes topics until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, group sarama.ConsumerGroup, topics []string) {
	go func() {
		for err := range group.Errors() {
			c.log.WithError(err).Warn("kafka consumer error")
		}
	}()

	for {
		if err := group.Consume(ctx, topics, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			c.log.WithError(err).Error("kafka consume")
		}
		if ctx.Err() != nil {
			return
		}
	}
}
