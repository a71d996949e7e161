package queue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/yeremiapane/restaurant-reservation/utils"
)

const (
	defaultExchange   = "reservations"
	defaultBufferSize = 1024
	publishTimeout    = 5 * time.Second
)

type outgoing struct {
	topic string
	body  []byte
}

// RabbitNotifier publishes notifications to a durable topic exchange, using the
// notification topic as routing key. Notify never blocks: events are queued in
// memory and dropped when the buffer is full or the broker is unreachable.
type RabbitNotifier struct {
	url      string
	exchange string
	events   chan outgoing
	dropped  atomic.Int64
	stop     chan struct{}
	wg       sync.WaitGroup
	now      func() time.Time
}

func NewRabbitNotifier(url, exchange string, buffer int) *RabbitNotifier {
	if exchange == "" {
		exchange = defaultExchange
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}
	return &RabbitNotifier{
		url:      url,
		exchange: exchange,
		events:   make(chan outgoing, buffer),
		stop:     make(chan struct{}),
		now:      time.Now,
	}
}

func (n *RabbitNotifier) Notify(topic string, payload interface{}) {
	body, err := encodeEvent(topic, payload, n.now())
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("rabbitmq: encode event failed")
		return
	}
	select {
	case n.events <- outgoing{topic: topic, body: body}:
	default:
		n.dropped.Add(1)
		utils.InfoLogger.WithField("topic", topic).Warn("rabbitmq: buffer full, event dropped")
	}
}

// Dropped reports how many events were discarded.
func (n *RabbitNotifier) Dropped() int64 {
	return n.dropped.Load()
}

// Start runs the publishing worker with a reconnect loop.
func (n *RabbitNotifier) Start() {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		backoff := time.Second
		for {
			err := n.publishLoop()
			if err == nil {
				return
			}
			utils.ErrorLogger.WithError(err).Errorf("rabbitmq: publisher stopped, reconnecting in %s", backoff)
			select {
			case <-n.stop:
				return
			case <-time.After(backoff):
			}
			if backoff < maxRetryBackoff {
				backoff *= 2
			}
		}
	}()
}

// Stop ends the worker. Queued events that were not published are lost.
func (n *RabbitNotifier) Stop() {
	close(n.stop)
	n.wg.Wait()
}

// publishLoop returns nil only when stopped.
func (n *RabbitNotifier) publishLoop() error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.ExchangeDeclare(n.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}

	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	for {
		select {
		case <-n.stop:
			return nil
		case amqpErr := <-closed:
			return fmt.Errorf("connection closed: %v", amqpErr)
		case ev := <-n.events:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			err := ch.PublishWithContext(ctx, n.exchange, ev.topic, false, false, amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Timestamp:    n.now().UTC(),
				Body:         ev.body,
			})
			cancel()
			if err != nil {
				n.dropped.Add(1)
				return fmt.Errorf("publish %s: %w", ev.topic, err)
			}
		}
	}
}
