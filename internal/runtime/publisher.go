package runtime

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	brokerpkg "github.com/drblury/pulseflow/internal/runtime/broker"
	configpkg "github.com/drblury/pulseflow/internal/runtime/config"
	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
	"github.com/drblury/pulseflow/internal/runtime/ids"
	"github.com/drblury/pulseflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/pulseflow/internal/runtime/logging"
	schemapkg "github.com/drblury/pulseflow/internal/runtime/schema"
	statspkg "github.com/drblury/pulseflow/internal/runtime/stats"
)

const tracerName = "pulseflow-publisher-tracer"

// Broker is the slice of the broker connection the Publisher drives.
type Broker interface {
	PublishConfirmed(ctx context.Context, pub brokerpkg.Publishing) error
	Faults() <-chan error
	Close() error
}

// BrokerFactory allows overriding the broker connection creation for testing.
var BrokerFactory = func(settings brokerpkg.Settings) (Broker, error) {
	return brokerpkg.Connect(settings)
}

// PublisherDependencies holds the optional collaborators a Publisher can use.
// Leave fields nil to fall back to the defaults.
type PublisherDependencies struct {
	// Validator supplies the message schemas. When nil a fresh validator is
	// created; register every declaration's schema on it before Connect, or
	// Connect fails.
	Validator *schemapkg.Validator

	// Drain receives one statistics observation per publish call.
	Drain statspkg.Drain

	// Hooks are invoked around every publish attempt.
	Hooks PublishHooks
}

// boundEntry is one declaration bound to its full wire-level exchange name.
type boundEntry struct {
	decl     *Declaration
	exchange string
}

// Publisher issues confirmed publishes for every declaration in one frozen
// snapshot. All publishes share a single broker connection and confirm
// channel; a fault on either renders the instance permanently unusable and
// the owner must build a new one.
type Publisher struct {
	conf     *configpkg.Config
	log      loggingpkg.ServiceLogger
	snapshot *Snapshot

	broker    Broker
	validator *schemapkg.Validator
	drain     statspkg.Drain
	hooks     PublishHooks
	tracker   *statspkg.Tracker

	entries map[string]boundEntry

	mu     sync.RWMutex
	closed bool
}

// Connect binds snapshot to a fresh broker connection and returns the
// Publisher for it. Every declared exchange is asserted as a topic exchange
// under the effective prefix and every declaration schema is compiled up
// front, so a misconfigured snapshot fails here instead of on the first
// publish. Any failure is a ConnectionError and no Publisher is returned.
func Connect(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, snapshot *Snapshot, deps PublisherDependencies) (*Publisher, error) {
	if log == nil {
		log = loggingpkg.NewNopLogger()
	}
	if snapshot == nil {
		return nil, errspkg.NewConnectionError("a registry snapshot is required", errspkg.ErrSnapshotRequired)
	}
	if err := configpkg.ValidateConfig(conf); err != nil {
		return nil, errspkg.NewConnectionError("invalid configuration", err)
	}

	prefix := snapshot.EffectiveExchangePrefix(identityUsername(conf))
	durable := snapshot.Options().Durability.IsDurable()

	validator := deps.Validator
	if validator == nil {
		validator = schemapkg.NewValidator()
	}

	entries := make(map[string]boundEntry, snapshot.Len())
	exchanges := make([]brokerpkg.Exchange, 0, snapshot.Len())
	for _, decl := range snapshot.Declarations() {
		if _, err := validator.Compile(decl.Schema); err != nil {
			return nil, errspkg.NewConnectionError(fmt.Sprintf("schema for %q is not usable", decl.Name), err)
		}
		exchange := prefix + decl.Exchange
		entries[decl.Name] = boundEntry{decl: decl, exchange: exchange}
		exchanges = append(exchanges, brokerpkg.Exchange{Name: exchange, Durable: durable})
	}

	conn, err := BrokerFactory(brokerpkg.Settings{
		ConnectionString: conf.GetConnectionString(),
		Username:         conf.GetUsername(),
		Password:         conf.GetPassword(),
		Hostname:         conf.GetHostname(),
		Exchanges:        exchanges,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Connected to the broker",
		loggingpkg.LogFields{
			"exchange_prefix": prefix,
			"exchanges":       len(exchanges),
			"config":          conf,
		})

	return &Publisher{
		conf:      conf,
		log:       log,
		snapshot:  snapshot,
		broker:    conn,
		validator: validator,
		drain:     deps.Drain,
		hooks:     deps.Hooks,
		tracker:   statspkg.NewTracker(),
		entries:   entries,
	}, nil
}

// identityUsername resolves the broker identity the exchange prefix is
// derived from: the explicit username, or the one embedded in the connection
// string.
func identityUsername(conf *configpkg.Config) string {
	if username := conf.GetUsername(); username != "" {
		return username
	}
	if parsed, err := url.Parse(conf.GetConnectionString()); err == nil && parsed.User != nil {
		return parsed.User.Username()
	}
	return ""
}

// Publish runs one declared publish operation: build the message, routing
// key, and CC keys from args, validate the message against the declaration's
// schema, encode the routing key, and hand the payload to the broker for a
// confirmed publish. Validation and encoding happen before any broker I/O.
// One statistics observation is emitted per call regardless of outcome.
func (p *Publisher) Publish(ctx context.Context, name string, args ...any) error {
	entry, ok := p.entries[name]
	if !ok {
		return fmt.Errorf("%w: %q", errspkg.ErrUnknownEntry, name)
	}

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "PublishMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("entry.name", name),
		attribute.String("exchange.name", entry.exchange),
	)

	start := time.Now()
	hookCtx := PublishContext{
		Entry:     name,
		Exchange:  entry.exchange,
		StartedAt: start,
	}
	if p.hooks.OnPublishStart != nil {
		p.hooks.OnPublishStart(hookCtx)
	}

	outcome, err := p.publish(ctx, entry, args)
	duration := time.Since(start)

	hookCtx.RoutingKey = outcome.routingKey
	hookCtx.CC = outcome.cc
	hookCtx.PayloadSize = outcome.payloadSize
	hookCtx.Duration = duration

	if err != nil {
		span.RecordError(err)
		p.log.Error("Publish failed", err,
			loggingpkg.LogFields{
				"entry":    name,
				"exchange": entry.exchange,
			})
		if p.hooks.OnPublishError != nil {
			p.hooks.OnPublishError(hookCtx, err)
		}
	} else {
		span.SetAttributes(
			attribute.String("routing.key", outcome.routingKey),
			attribute.Int("routing.fanout", 1+len(outcome.cc)),
			attribute.Int("payload.bytes", outcome.payloadSize),
		)
		p.log.Trace("Published message",
			loggingpkg.LogFields{
				"entry":       name,
				"exchange":    entry.exchange,
				"routing_key": outcome.routingKey,
				"cc":          len(outcome.cc),
			})
		if p.hooks.OnPublishDone != nil {
			p.hooks.OnPublishDone(hookCtx)
		}
	}

	p.tracker.Record(entry.exchange, duration, err)
	if p.drain != nil {
		p.drain.Observe(statspkg.Observation{
			Component:   p.conf.GetComponent(),
			Process:     p.conf.GetProcess(),
			Duration:    duration,
			RoutingKeys: 1 + len(outcome.cc),
			PayloadSize: outcome.payloadSize,
			Exchange:    entry.exchange,
			Error:       err != nil,
		})
	}
	return err
}

// publishOutcome carries what a publish attempt managed to compute. Fields
// are zero when the attempt failed before reaching them.
type publishOutcome struct {
	routingKey  string
	cc          []string
	payloadSize int
}

func (p *Publisher) publish(ctx context.Context, entry boundEntry, args []any) (publishOutcome, error) {
	var outcome publishOutcome

	if p.Closed() {
		return outcome, errspkg.ErrPublisherClosed
	}
	decl := entry.decl

	message, err := decl.MessageBuilder(args...)
	if err != nil {
		return outcome, errspkg.NewArgumentError(decl.Name, "message", err)
	}
	builtKey, err := decl.RoutingKeyBuilder(args...)
	if err != nil {
		return outcome, errspkg.NewArgumentError(decl.Name, "routing key", err)
	}
	cc, err := decl.CCBuilder(args...)
	if err != nil {
		return outcome, errspkg.NewArgumentError(decl.Name, "cc", err)
	}
	outcome.cc = cc

	body, err := jsoncodec.Marshal(message)
	if err != nil {
		return outcome, errspkg.NewArgumentError(decl.Name, "message", err)
	}
	outcome.payloadSize = len(body)

	instance, err := jsoncodec.Value(body)
	if err != nil {
		return outcome, errspkg.NewArgumentError(decl.Name, "message", err)
	}
	if err := p.validator.Validate(decl.Schema, instance); err != nil {
		return outcome, errspkg.NewValidationError(decl.Name, decl.Schema, schemapkg.Violations(err), err)
	}

	routingKey, err := encodeRoutingKey(decl, builtKey)
	if err != nil {
		return outcome, err
	}
	outcome.routingKey = routingKey

	if timeout := p.conf.GetPublishTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	err = p.broker.PublishConfirmed(ctx, brokerpkg.Publishing{
		Exchange:   entry.exchange,
		RoutingKey: routingKey,
		CC:         cc,
		Body:       body,
		MessageID:  ids.CreateULID(),
	})
	return outcome, err
}

// PublishFunc returns the publish callable bound to one declared name, or
// false when the name was never declared. The set of callables is fixed at
// Connect time.
func (p *Publisher) PublishFunc(name string) (func(ctx context.Context, args ...any) error, bool) {
	if _, ok := p.entries[name]; !ok {
		return nil, false
	}
	return func(ctx context.Context, args ...any) error {
		return p.Publish(ctx, name, args...)
	}, true
}

// Entries returns the declared names publishes can be issued under, sorted.
func (p *Publisher) Entries() []string {
	names := make([]string, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Infos returns per-exchange publish statistics collected so far.
func (p *Publisher) Infos() []statspkg.ExchangeInfo {
	return p.tracker.Infos()
}

// Snapshot returns the frozen declaration snapshot this Publisher is bound
// to. Mutating the live registry after Connect never affects it.
func (p *Publisher) Snapshot() *Snapshot {
	return p.snapshot
}

// Faults delivers at most one terminal broker fault. Receiving one means the
// Publisher is dead: discard it and connect again.
func (p *Publisher) Faults() <-chan error {
	return p.broker.Faults()
}

// Closed reports whether Close has been called.
func (p *Publisher) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Close tears down the broker connection. Publishes in flight fail once
// their confirmations are nacked by the teardown; new publishes are rejected
// immediately.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.log.Info("Closing the broker connection",
		loggingpkg.LogFields{
			"component": p.conf.GetComponent(),
		})
	return p.broker.Close()
}
