// Package infra_amqp holds the broker capabilities the relay depends on.
// *amqp091.Channel satisfies Channel as is; Connection is adapted by Dial.
package infra_amqp

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	QueueDelete(name string, ifUnused, ifEmpty, noWait bool) (int, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

type Connection interface {
	Channel() (Channel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

type Dialer interface {
	Dial(url string) (Connection, error)
}

type DialerFunc func(url string) (Connection, error)

func (f DialerFunc) Dial(url string) (Connection, error) {
	return f(url)
}

// Dial is the production Dialer backed by amqp091-go.
var Dial Dialer = DialerFunc(func(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return &connection{conn}, nil
})

type connection struct {
	*amqp.Connection
}

func (c *connection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// Topology names the exchanges and queues shared with the game authority.
type Topology struct {
	EventsExchange    string
	EventsQueue       string
	EventsBindingKey  string
	RequestExchange   string
	RequestRoutingKey string
	ResponseExchange  string
}

func DefaultTopology() Topology {
	return Topology{
		EventsExchange:    "game.events",
		EventsQueue:       "chat.game.events",
		EventsBindingKey:  "game.event.*",
		RequestExchange:   "game.request",
		RequestRoutingKey: "game.request",
		ResponseExchange:  "game.response",
	}
}
