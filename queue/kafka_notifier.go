package queue

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

// KafkaNotifier publishes notifications to a Kafka topic for downstream
// consumers. Writes are asynchronous; failures are logged by the writer.
type KafkaNotifier struct {
	writer *kafka.Writer
	now    func() time.Time
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           100 * time.Millisecond,
			Async:                  true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					utils.ErrorLogger.WithError(err).WithField("messages", len(messages)).Error("kafka: publish failed")
				}
			},
		},
		now: time.Now,
	}
}

func (n *KafkaNotifier) Notify(topic string, payload interface{}) {
	body, err := encodeEvent(topic, payload, n.now())
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("kafka: encode event failed")
		return
	}
	msg := kafka.Message{
		Key:     []byte(eventKey(payload)),
		Value:   body,
		Headers: []kafka.Header{{Key: "topic", Value: []byte(topic)}},
	}
	if err := n.writer.WriteMessages(context.Background(), msg); err != nil {
		utils.ErrorLogger.WithError(err).WithField("topic", topic).Error("kafka: enqueue failed")
	}
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
