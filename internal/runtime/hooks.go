package runtime

import (
	"time"

	loggingpkg "github.com/drblury/pulseflow/internal/runtime/logging"
)

// PublishContext provides information about a publish attempt to hooks.
type PublishContext struct {
	// Entry is the declared name the publish was issued under.
	Entry string
	// Exchange is the full wire-level exchange name the message goes to.
	Exchange string
	// RoutingKey is the encoded routing key. It stays empty until encoding
	// succeeded, so OnPublishError may see it unset.
	RoutingKey string
	// CC holds the additional routing keys of the publish.
	CC []string
	// PayloadSize is the serialized message size in bytes. It stays zero
	// until serialization succeeded.
	PayloadSize int
	// StartedAt is when the publish attempt started.
	StartedAt time.Time
	// Duration is how long the attempt took (only set in OnPublishDone and
	// OnPublishError).
	Duration time.Duration
}

// PublishHooks defines callbacks for publish lifecycle events.
// All hooks are optional - nil hooks are simply not called.
type PublishHooks struct {
	// OnPublishStart is called when a publish attempt begins.
	// This is called before the message builders are invoked.
	OnPublishStart func(ctx PublishContext)

	// OnPublishDone is called after the broker confirmed the publish.
	// Duration will be set to how long the attempt took.
	OnPublishDone func(ctx PublishContext)

	// OnPublishError is called when any pipeline stage fails.
	// The error is passed as the second argument.
	// Duration will be set to how long the attempt took before failing.
	OnPublishError func(ctx PublishContext, err error)
}

// Merge combines two PublishHooks, creating a new PublishHooks that calls
// both. The hooks from 'other' are called after the hooks from 'h'.
func (h PublishHooks) Merge(other PublishHooks) PublishHooks {
	return PublishHooks{
		OnPublishStart: chainHooks(h.OnPublishStart, other.OnPublishStart),
		OnPublishDone:  chainHooks(h.OnPublishDone, other.OnPublishDone),
		OnPublishError: chainErrorHooks(h.OnPublishError, other.OnPublishError),
	}
}

func chainHooks(a, b func(PublishContext)) func(PublishContext) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx PublishContext) {
		a(ctx)
		b(ctx)
	}
}

func chainErrorHooks(a, b func(PublishContext, error)) func(PublishContext, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx PublishContext, err error) {
		a(ctx, err)
		b(ctx, err)
	}
}

// LoggingHooks returns pre-built hooks that log publish lifecycle events.
func LoggingHooks(log loggingpkg.ServiceLogger) PublishHooks {
	return PublishHooks{
		OnPublishStart: func(ctx PublishContext) {
			log.Debug("Publish started", loggingpkg.LogFields{
				"entry":    ctx.Entry,
				"exchange": ctx.Exchange,
			})
		},
		OnPublishDone: func(ctx PublishContext) {
			log.Info("Publish completed", loggingpkg.LogFields{
				"entry":       ctx.Entry,
				"exchange":    ctx.Exchange,
				"routing_key": ctx.RoutingKey,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
		OnPublishError: func(ctx PublishContext, err error) {
			log.Error("Publish failed", err, loggingpkg.LogFields{
				"entry":       ctx.Entry,
				"exchange":    ctx.Exchange,
				"duration_ms": ctx.Duration.Milliseconds(),
			})
		},
	}
}

// MetricsHooks returns pre-built hooks that record publish metrics.
func MetricsHooks(onStart, onDone, onError func(entry, exchange string)) PublishHooks {
	return PublishHooks{
		OnPublishStart: func(ctx PublishContext) {
			if onStart != nil {
				onStart(ctx.Entry, ctx.Exchange)
			}
		},
		OnPublishDone: func(ctx PublishContext) {
			if onDone != nil {
				onDone(ctx.Entry, ctx.Exchange)
			}
		},
		OnPublishError: func(ctx PublishContext, err error) {
			if onError != nil {
				onError(ctx.Entry, ctx.Exchange)
			}
		},
	}
}

// AlertingHooks returns pre-built hooks that trigger alerts on publish
// errors.
func AlertingHooks(alertFunc func(ctx PublishContext, err error)) PublishHooks {
	return PublishHooks{
		OnPublishError: alertFunc,
	}
}
