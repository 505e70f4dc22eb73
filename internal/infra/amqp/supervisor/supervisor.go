package infra_amqp_supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	infra_amqp "github.com/humanbelnik/scribble-relay/internal/infra/amqp"
	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrConnectionExhausted = errors.New("broker unreachable")
	ErrBrokerRejected      = errors.New("broker rejected connection")
	ErrTopology            = errors.New("failed to declare topology")
)

// Session is one live connection plus the single channel shared by
// consumers and publishers.
type Session struct {
	conn     infra_amqp.Connection
	ch       infra_amqp.Channel
	topology infra_amqp.Topology
}

func (s *Session) Channel() infra_amqp.Channel {
	return s.ch
}

func (s *Session) Topology() infra_amqp.Topology {
	return s.topology
}

func (s *Session) Close() error {
	return errors.Join(s.ch.Close(), s.conn.Close())
}

type Supervisor struct {
	url      string
	dialer   infra_amqp.Dialer
	topology infra_amqp.Topology
	prefetch int

	logger *slog.Logger
}

type SupervisorOption func(*Supervisor)

func WithLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

func WithDialer(dialer infra_amqp.Dialer) SupervisorOption {
	return func(s *Supervisor) {
		s.dialer = dialer
	}
}

func WithTopology(topology infra_amqp.Topology) SupervisorOption {
	return func(s *Supervisor) {
		s.topology = topology
	}
}

func WithPrefetch(prefetch int) SupervisorOption {
	return func(s *Supervisor) {
		s.prefetch = prefetch
	}
}

func New(url string, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		url:      url,
		dialer:   infra_amqp.Dial,
		topology: infra_amqp.DefaultTopology(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect dials up to maxAttempts times, sleeping backoffDelay between
// attempts. Exhaustion is returned as ErrConnectionExhausted and is meant to
// abort startup. Nothing here reconnects on its own afterwards.
func (s *Supervisor) Connect(ctx context.Context, maxAttempts uint, backoffDelay time.Duration) (*Session, error) {
	if maxAttempts == 0 {
		maxAttempts = 1
	}
	if _, err := amqp.ParseURI(s.url); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrokerRejected, err)
	}

	var attempt uint
	session, err := backoff.Retry(ctx, func() (*Session, error) {
		attempt++
		session, err := s.connectOnce()
		if err == nil {
			return session, nil
		}
		if isFatal(err) {
			return nil, backoff.Permanent(fmt.Errorf("%w: %w", ErrBrokerRejected, err))
		}
		s.logger.Warn("broker connection attempt failed",
			slog.Uint64("attempt", uint64(attempt)),
			slog.Uint64("max_attempts", uint64(maxAttempts)),
			slog.String("error", err.Error()),
		)
		return nil, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(backoffDelay)),
		backoff.WithMaxTries(maxAttempts),
	)
	if err != nil {
		if errors.Is(err, ErrBrokerRejected) {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrConnectionExhausted, attempt, err)
	}

	s.logger.Info("connected to broker", slog.Uint64("attempt", uint64(attempt)))
	return session, nil
}

func (s *Supervisor) connectOnce() (*Session, error) {
	conn, err := s.dialer.Dial(s.url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	if err := s.declare(ch); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Join(ErrTopology, err)
	}

	s.observe("connection", conn.NotifyClose(make(chan *amqp.Error, 1)))
	s.observe("channel", ch.NotifyClose(make(chan *amqp.Error, 1)))

	return &Session{
		conn:     conn,
		ch:       ch,
		topology: s.topology,
	}, nil
}

func (s *Supervisor) declare(ch infra_amqp.Channel) error {
	t := s.topology
	if err := ch.ExchangeDeclare(t.EventsExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(t.RequestExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(t.ResponseExchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(t.EventsQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(t.EventsQueue, t.EventsBindingKey, t.EventsExchange, false, nil); err != nil {
		return err
	}
	if s.prefetch > 0 {
		return ch.Qos(s.prefetch, 0, false)
	}
	return nil
}

// observe only logs. Reconnecting from here would race the supervised loop.
func (s *Supervisor) observe(what string, notify chan *amqp.Error) {
	go func() {
		for amqpErr := range notify {
			if amqpErr == nil {
				continue
			}
			s.logger.Error("broker "+what+" closed",
				slog.Int("code", amqpErr.Code),
				slog.String("reason", amqpErr.Reason),
				slog.Bool("recoverable", amqpErr.Recover),
			)
		}
		s.logger.Info("broker " + what + " observer stopped")
	}()
}

func isFatal(err error) bool {
	return errors.Is(err, amqp.ErrCredentials) ||
		errors.Is(err, amqp.ErrVhost) ||
		errors.Is(err, amqp.ErrSASL)
}
