package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/tazhibayda/todo-service/internal/log"
)

const HeaderRequestID = "X-Request-ID"

// Handler processes one delivery body. A returned error requeues the message
// a bounded number of times unless it wraps ErrPermanent.
type Handler func(ctx context.Context, body []byte) error

// ErrPermanent marks a message that can never be processed (bad payload).
var ErrPermanent = errors.New("permanent failure")

type Consumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	q        string
	Prefetch int
}

// NewConsumer declares exchange and a durable queue bound to it with key.
func NewConsumer(url, exchange, queue, key string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbit: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	fail := func(step string, err error) (*Consumer, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", step, err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fail("declare exchange", err)
	}
	qd, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fail("declare queue", err)
	}
	if err := ch.QueueBind(qd.Name, key, exchange, false, nil); err != nil {
		return fail("bind queue", err)
	}
	return &Consumer{conn: conn, ch: ch, q: qd.Name, Prefetch: 20}, nil
}

func (c *Consumer) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// Consume runs workers goroutines until ctx is cancelled or the broker closes
// the delivery channel.
func (c *Consumer) Consume(ctx context.Context, workers int, handle Handler) error {
	if c == nil || c.ch == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if workers <= 0 {
		workers = 1
	}
	if err := c.ch.Qos(c.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	msgs, err := c.ch.Consume(c.q, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case d, ok := <-msgs:
					if !ok {
						return
					}
					dispatch(ctx, d, handle)
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func dispatch(ctx context.Context, d amqp.Delivery, handle Handler) {
	reqID, _ := d.Headers[HeaderRequestID].(string)
	ctx = log.WithRequestID(ctx, reqID)
	lg := log.Ctx(ctx, zap.String("message_id", d.MessageId), zap.String("key", d.RoutingKey))

	err := Process(ctx, d.Body, handle)
	switch {
	case err == nil:
		_ = d.Ack(false)
	case isPermanent(err):
		lg.Error("dropping message", zap.Error(err))
		_ = d.Nack(false, false)
	case shouldRequeue(d):
		lg.Warn("requeueing message", zap.Error(err))
		_ = d.Nack(false, true)
	default:
		lg.Error("giving up on message", zap.Error(err), zap.Bool("redelivered", d.Redelivered))
		_ = d.Nack(false, false)
	}
}

// maxDeliveries caps attempts on quorum queues, which count deliveries in
// x-delivery-count. Classic queues only flag redeliveries, so a message
// there gets one retry.
const maxDeliveries = 3

func shouldRequeue(d amqp.Delivery) bool {
	var prev int64
	switch n := d.Headers["x-delivery-count"].(type) {
	case int64:
		prev = n
	case int32:
		prev = int64(n)
	case int:
		prev = int64(n)
	default:
		return !d.Redelivered
	}
	return prev+1 < maxDeliveries
}

// Process runs handle and converts a panic into a permanent failure.
func Process(ctx context.Context, body []byte, handle Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrPermanent, r)
		}
	}()
	return handle(ctx, body)
}

func isPermanent(err error) bool { return errors.Is(err, ErrPermanent) }
