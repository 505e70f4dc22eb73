// Package amqptest provides an in-memory broker channel for tests.
package amqptest

import (
	"context"
	"fmt"
	"sync"

	infra_amqp "github.com/humanbelnik/scribble-relay/internal/infra/amqp"
	amqp "github.com/rabbitmq/amqp091-go"
)

type QueueDecl struct {
	Name       string
	Durable    bool
	AutoDelete bool
	Exclusive  bool
}

type Binding struct {
	Queue    string
	Key      string
	Exchange string
}

type Publication struct {
	Exchange string
	Key      string
	Msg      amqp.Publishing
}

// Channel records every call and lets tests push deliveries to consumers.
// Failures are injected through the *Err fields.
type Channel struct {
	mu sync.Mutex

	Exchanges map[string]string
	Queues    map[string]QueueDecl
	Declared  []QueueDecl
	Bindings  []Binding
	Published []Publication
	Deleted   []string
	Cancelled []string
	Acked     []uint64
	Nacked    []uint64
	Prefetch  int

	ExchangeErr     error
	QueueDeclareErr error
	ConsumeErr      error
	PublishErr      error

	// OnPublish runs after a successful publish, outside the lock.
	OnPublish func(p Publication)

	consumers map[string]chan amqp.Delivery
	byQueue   map[string]string
	nextQueue int
	nextTag   uint64
	closed    bool
}

func NewChannel() *Channel {
	return &Channel{
		Exchanges: map[string]string{},
		Queues:    map[string]QueueDecl{},
		consumers: map[string]chan amqp.Delivery{},
		byQueue:   map[string]string{},
	}
}

var _ infra_amqp.Channel = (*Channel)(nil)

func (c *Channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ExchangeErr != nil {
		return c.ExchangeErr
	}
	c.Exchanges[name] = kind
	return nil
}

func (c *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.QueueDeclareErr != nil {
		return amqp.Queue{}, c.QueueDeclareErr
	}
	if name == "" {
		c.nextQueue++
		name = fmt.Sprintf("amq.gen-%d", c.nextQueue)
	}
	decl := QueueDecl{Name: name, Durable: durable, AutoDelete: autoDelete, Exclusive: exclusive}
	c.Queues[name] = decl
	c.Declared = append(c.Declared, decl)
	return amqp.Queue{Name: name}, nil
}

func (c *Channel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Bindings = append(c.Bindings, Binding{Queue: name, Key: key, Exchange: exchange})
	return nil
}

func (c *Channel) QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.Queues, name)
	c.Deleted = append(c.Deleted, name)
	return 0, nil
}

func (c *Channel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prefetch = prefetchCount
	return nil
}

func (c *Channel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ConsumeErr != nil {
		return nil, c.ConsumeErr
	}
	if consumer == "" {
		consumer = fmt.Sprintf("ctag-%d", len(c.consumers)+1)
	}
	deliveries := make(chan amqp.Delivery, 64)
	c.consumers[consumer] = deliveries
	c.byQueue[queue] = consumer
	return deliveries, nil
}

func (c *Channel) Cancel(consumer string, noWait bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if deliveries, ok := c.consumers[consumer]; ok {
		close(deliveries)
		delete(c.consumers, consumer)
	}
	for queue, tag := range c.byQueue {
		if tag == consumer {
			delete(c.byQueue, queue)
		}
	}
	c.Cancelled = append(c.Cancelled, consumer)
	return nil
}

func (c *Channel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	if c.PublishErr != nil {
		c.mu.Unlock()
		return c.PublishErr
	}
	p := Publication{Exchange: exchange, Key: key, Msg: msg}
	c.Published = append(c.Published, p)
	hook := c.OnPublish
	c.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return nil
}

func (c *Channel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return receiver
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	for tag, deliveries := range c.consumers {
		close(deliveries)
		delete(c.consumers, tag)
	}
	return nil
}

// Deliver pushes body to whoever consumes queue. It reports false when no
// consumer is attached.
func (c *Channel) Deliver(queue string, msg amqp.Publishing) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag, ok := c.byQueue[queue]
	if !ok {
		return false
	}
	c.nextTag++
	c.consumers[tag] <- amqp.Delivery{
		Acknowledger:  c,
		DeliveryTag:   c.nextTag,
		ConsumerTag:   tag,
		ContentType:   msg.ContentType,
		CorrelationId: msg.CorrelationId,
		ReplyTo:       msg.ReplyTo,
		Body:          msg.Body,
	}
	return true
}

// BoundQueue finds the queue bound to exchange with key.
func (c *Channel) BoundQueue(exchange, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.Bindings) - 1; i >= 0; i-- {
		b := c.Bindings[i]
		if b.Exchange == exchange && b.Key == key {
			return b.Queue, true
		}
	}
	return "", false
}

func (c *Channel) Publications() []Publication {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Publication(nil), c.Published...)
}

func (c *Channel) AckedTags() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.Acked...)
}

func (c *Channel) NackedTags() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]uint64(nil), c.Nacked...)
}

func (c *Channel) DeletedQueues() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.Deleted...)
}

func (c *Channel) ActiveConsumers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.consumers)
}

func (c *Channel) Ack(tag uint64, multiple bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Acked = append(c.Acked, tag)
	return nil
}

func (c *Channel) Nack(tag uint64, multiple, requeue bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Nacked = append(c.Nacked, tag)
	return nil
}

func (c *Channel) Reject(tag uint64, requeue bool) error {
	return c.Nack(tag, false, requeue)
}

// Connection hands out Ch, or ChannelErr when set.
type Connection struct {
	Ch         *Channel
	ChannelErr error

	mu     sync.Mutex
	closed bool
}

var _ infra_amqp.Connection = (*Connection)(nil)

func (c *Connection) Channel() (infra_amqp.Channel, error) {
	if c.ChannelErr != nil {
		return nil, c.ChannelErr
	}
	return c.Ch, nil
}

func (c *Connection) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return receiver
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
