package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-reservation/services"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const maxRetryBackoff = 30 * time.Second

// PaymentProcessor applies one payment event.
type PaymentProcessor interface {
	Handle(ctx context.Context, ev services.PaymentEvent) (*services.PaymentResult, error)
}

// PaymentConsumer reads payment events from Kafka. Offsets are committed only
// after an event was applied, so delivery is at least once and PaymentProcessor
// must be idempotent.
type PaymentConsumer struct {
	Reader   *kafka.Reader
	Payments PaymentProcessor
}

func NewPaymentConsumer(brokers []string, topic, groupID string, payments PaymentProcessor) *PaymentConsumer {
	return &PaymentConsumer{
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: groupID,
		}),
		Payments: payments,
	}
}

// Run consumes until ctx is cancelled.
func (c *PaymentConsumer) Run(ctx context.Context) error {
	utils.InfoLogger.WithField("topic", c.Reader.Config().Topic).Info("payment consumer started")
	for {
		msg, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		backoff := time.Second
		for {
			err := c.handleMessage(ctx, msg.Value)
			if err == nil {
				break
			}
			utils.ErrorLogger.WithFields(logrus.Fields{
				"partition": msg.Partition,
				"offset":    msg.Offset,
			}).WithError(err).Error("payment event failed, retrying")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			if backoff < maxRetryBackoff {
				backoff *= 2
			}
		}

		if err := c.Reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// handleMessage returns an error only when the event should be retried.
// Malformed messages and business rejections are logged and skipped.
func (c *PaymentConsumer) handleMessage(ctx context.Context, value []byte) error {
	var ev services.PaymentEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		utils.ErrorLogger.WithError(err).Error("skipping malformed payment event")
		return nil
	}
	ev.Source = "kafka"

	result, err := c.Payments.Handle(ctx, ev)
	if err != nil {
		var svcErr *services.Error
		if errors.As(err, &svcErr) {
			utils.InfoLogger.WithFields(logrus.Fields{
				"payment_reference": ev.PaymentReference,
				"code":              svcErr.Code,
			}).Warn("payment event rejected")
			return nil
		}
		return err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"payment_reference": ev.PaymentReference,
		"disposition":       result.Disposition,
	}).Info("payment event applied")
	return nil
}

func (c *PaymentConsumer) Close() error {
	return c.Reader.Close()
}
