/*
Package runtime provides the core publishing infrastructure for pulseflow.

# Architecture Overview

The runtime package implements a declarative publishing layer on top of a
single AMQP connection. Applications describe every message they publish as a
declaration - an exchange, a JSON schema, and a routing key layout - and the
runtime turns each declaration into a validated, confirmed publish operation.

# Package Structure

The runtime package is organized into the following components:

## Declarations (declaration.go, registry.go, snapshot.go)

A Declaration names one publishable message: its exchange, schema URI, routing
key fields, and the builder functions that derive the message, routing key,
and CC keys from call arguments. Declarations are collected in a Registry and
frozen into an immutable Snapshot before any connection is made.

## Routing Key Encoding (encode.go)

Routing keys are assembled from declared fields: constants are pinned,
optional absent fields become placeholders, numeric values are rendered in
decimal, and the whole key is bounded to the broker's 255-byte limit.

## Publishing (publisher.go)

The Publisher binds a Snapshot to a broker connection. Each publish builds
the message, validates it against the declared schema, encodes the routing
key, and waits for the broker's confirmation. Failures before broker I/O
never leave the process.

## Hooks (hooks.go)

PublishHooks provide lifecycle callbacks around every publish attempt, with
pre-built logging, metrics, and alerting variants.

## Stats & Monitoring (stats/, introspection.go)

Extended metrics collection for publish performance:
  - Latency percentiles (p50, p95, p99)
  - Throughput tracking
  - Error categorization by pipeline stage
  - Resource usage sampling
  - Prometheus drain and JSON introspection endpoint

## Reference Documents (reference.go)

A Snapshot renders into a self-validating reference document describing every
exchange and routing key field, for upload to object storage.

# Sub-packages

  - broker/: AMQP connection, exchange assertion, confirmed publishing
  - config/: Publisher configuration with validation and redaction
  - errors/: Sentinel errors and error types
  - ids/: ULID generation for message IDs
  - jsoncodec/: JSON marshaling utilities
  - logging/: Logger interface and adapters
  - schema/: JSON schema compilation, validation, and reflection
  - stats/: Publish statistics, trackers, and the Prometheus drain

# Usage Example

	reg := pulseflow.NewRegistry()
	reg.Configure(pulseflow.Options{
		Title:          "Inventory Service",
		Description:    "Publishes inventory lifecycle events.",
		ExchangePrefix: "v1/",
	})

	err := reg.Declare(pulseflow.Declaration{
		Exchange: "item-created",
		Name:     "itemCreated",
		Schema:   "https://schemas.example.com/inventory/v1/item-created.json",
		RoutingKey: []pulseflow.RoutingKeyField{
			{Name: "region", Summary: "Region the item lives in.", Required: true, MaxSize: 32},
		},
		MessageBuilder:    buildItemCreated,
		RoutingKeyBuilder: buildItemCreatedKey,
	})

	pub, err := pulseflow.Connect(ctx, cfg, logger, reg.Snapshot(), pulseflow.PublisherDependencies{})
	err = pub.Publish(ctx, "itemCreated", item)
*/
package runtime
