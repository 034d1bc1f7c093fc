// Package broker maintains the single AMQP connection and confirm channel
// that all publishes flow through. It asserts the declared topic exchanges at
// connect time and converts connection or channel teardown into one terminal
// fault. There is no reconnect: once a fault is delivered the owner discards
// the connection and builds a new one.
package broker

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
)

const defaultPort = "5671"

// Settings carries everything needed to reach the broker and assert the
// declared exchanges. ConnectionString wins over the credential triple.
type Settings struct {
	ConnectionString string
	Username         string
	Password         string
	Hostname         string
	Exchanges        []Exchange
}

// Exchange names one topic exchange to assert at connect time. Name is the
// full exchange name including any prefix.
type Exchange struct {
	Name    string
	Durable bool
}

// Publishing is one confirmed publish bound for a topic exchange.
type Publishing struct {
	Exchange   string
	RoutingKey string
	CC         []string
	Body       []byte
	MessageID  string
}

// Session is the subset of the AMQP connection the broker drives.
type Session interface {
	Channel() (ConfirmChannel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// ConfirmChannel is the subset of the AMQP channel the broker drives.
type ConfirmChannel interface {
	Confirm(noWait bool) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (Confirmation, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

// Confirmation resolves once the broker acknowledges one published message.
type Confirmation interface {
	WaitContext(ctx context.Context) (acked bool, err error)
}

// DialFactory allows overriding the connection creation for testing.
var DialFactory = func(amqpURL string) (Session, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	return amqpSession{conn: conn}, nil
}

// Connection is one live broker connection with a confirm channel. All
// publishes issued through it share the channel; each publish is tracked by
// its own deferred confirmation.
type Connection struct {
	ch     ConfirmChannel
	conn   Session
	faults chan error

	mu     sync.RWMutex
	closed bool

	closeOnce sync.Once
}

// Connect resolves the AMQP URL from settings, opens one connection and one
// confirm channel, and asserts every exchange as a topic exchange. Any
// failure along the way is a ConnectionError and no Connection is returned.
func Connect(settings Settings) (*Connection, error) {
	amqpURL, err := ResolveURL(settings)
	if err != nil {
		return nil, err
	}

	conn, err := DialFactory(amqpURL)
	if err != nil {
		return nil, errspkg.NewConnectionError("dialing the broker failed", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errspkg.NewConnectionError("opening the channel failed", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, errspkg.NewConnectionError("putting the channel into confirm mode failed", err)
	}

	for _, exchange := range settings.Exchanges {
		err := ch.ExchangeDeclare(
			exchange.Name,    // name
			"topic",          // kind
			exchange.Durable, // durable
			false,            // auto-delete
			false,            // internal
			false,            // no-wait
			nil,              // arguments
		)
		if err != nil {
			conn.Close()
			return nil, errspkg.NewConnectionError(fmt.Sprintf("declaring exchange %q failed", exchange.Name), err)
		}
	}

	c := &Connection{
		ch:     ch,
		conn:   conn,
		faults: make(chan error, 1),
	}
	go c.watch(
		conn.NotifyClose(make(chan *amqp.Error, 1)),
		ch.NotifyClose(make(chan *amqp.Error, 1)),
	)
	return c, nil
}

// ResolveURL returns the AMQP URL for settings: the explicit connection
// string when present, otherwise amqps on the default port built from the
// credential triple. Neither being complete is a ConnectionError.
func ResolveURL(settings Settings) (string, error) {
	if settings.ConnectionString != "" {
		return settings.ConnectionString, nil
	}
	if settings.Username == "" || settings.Password == "" || settings.Hostname == "" {
		return "", errspkg.NewConnectionError("either a connection string or the full username, password and hostname triple is required", nil)
	}
	host := settings.Hostname
	if !strings.Contains(host, ":") {
		host += ":" + defaultPort
	}
	u := url.URL{
		Scheme: "amqps",
		User:   url.UserPassword(settings.Username, settings.Password),
		Host:   host,
	}
	return u.String(), nil
}

// PublishConfirmed publishes one persistent message and blocks until the
// broker confirms it, the context is cancelled, or the channel dies. CC
// entries are attached as additional routing keys on the same message.
func (c *Connection) PublishConfirmed(ctx context.Context, pub Publishing) error {
	if c.Closed() {
		return errspkg.NewBrokerError(pub.Exchange, pub.RoutingKey, "connection is closed", errspkg.ErrConnectionClosed)
	}

	var headers amqp.Table
	if len(pub.CC) > 0 {
		cc := make([]interface{}, len(pub.CC))
		for i, key := range pub.CC {
			cc[i] = key
		}
		headers = amqp.Table{"CC": cc}
	}

	confirmation, err := c.ch.PublishWithDeferredConfirmWithContext(ctx,
		pub.Exchange,   // exchange
		pub.RoutingKey, // routing key
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			Headers:         headers,
			ContentType:     "application/json",
			ContentEncoding: "utf-8",
			DeliveryMode:    amqp.Persistent,
			MessageId:       pub.MessageID,
			Timestamp:       time.Now().UTC(),
			Body:            pub.Body,
		})
	if err != nil {
		return errspkg.NewBrokerError(pub.Exchange, pub.RoutingKey, "submitting the publish failed", err)
	}

	acked, err := confirmation.WaitContext(ctx)
	if err != nil {
		return errspkg.NewBrokerError(pub.Exchange, pub.RoutingKey, "awaiting the broker confirmation failed", err)
	}
	if !acked {
		// Pending confirmations are nacked when the channel goes away, so a
		// close while in flight surfaces here as well.
		return errspkg.NewBrokerError(pub.Exchange, pub.RoutingKey, "broker nacked the publish", nil)
	}
	return nil
}

// Faults delivers at most one terminal fault: the first connection or channel
// teardown initiated by the broker. A locally requested Close produces none.
func (c *Connection) Faults() <-chan error {
	return c.faults
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close tears the connection down. Publishes in flight fail with a
// BrokerError once their confirmations are nacked by the teardown.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		// Closing the connection also closes its channels.
		err = c.conn.Close()
	})
	return err
}

func (c *Connection) watch(connCloses, chCloses chan *amqp.Error) {
	var fault error
	select {
	case amqpErr, ok := <-connCloses:
		// The notify channel is closed without a value on local shutdown.
		if ok && amqpErr != nil {
			fault = errspkg.NewFaultError(errspkg.FaultConnection, amqpErr)
		}
	case amqpErr, ok := <-chCloses:
		if ok && amqpErr != nil {
			fault = errspkg.NewFaultError(errspkg.FaultChannel, amqpErr)
		}
	}
	if fault == nil {
		return
	}

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	select {
	case c.faults <- fault:
	default:
	}
}

type amqpSession struct {
	conn *amqp.Connection
}

func (s amqpSession) Channel() (ConfirmChannel, error) {
	ch, err := s.conn.Channel()
	if err != nil {
		return nil, err
	}
	return amqpChannel{ch: ch}, nil
}

func (s amqpSession) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return s.conn.NotifyClose(receiver)
}

func (s amqpSession) Close() error {
	return s.conn.Close()
}

type amqpChannel struct {
	ch *amqp.Channel
}

func (c amqpChannel) Confirm(noWait bool) error {
	return c.ch.Confirm(noWait)
}

func (c amqpChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return c.ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c amqpChannel) PublishWithDeferredConfirmWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (Confirmation, error) {
	confirmation, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, immediate, msg)
	if err != nil {
		return nil, err
	}
	return confirmation, nil
}

func (c amqpChannel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return c.ch.NotifyClose(receiver)
}

func (c amqpChannel) Close() error {
	return c.ch.Close()
}
