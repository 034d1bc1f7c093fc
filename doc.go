// Package pulseflow is a declarative publication layer for AMQP topic
// exchanges. Services describe every event they emit up front, in a Registry
// of Declarations: the exchange, a documented routing key layout, the JSON
// schema each message must conform to, and the builders that turn publish
// arguments into a message, a routing key, and optional CC keys. Connect
// freezes the registry into a Snapshot, asserts the declared exchanges on the
// broker, and returns a Publisher whose Publish calls validate, encode, and
// confirm every message.
//
// A minimal setup fills Config with broker credentials, declares exchanges on
// a Registry, and calls Connect; see the examples directory for copy/paste
// starting points.
//
// # Publishing pipeline
//
// Every Publish runs the same eight steps: build the message, build the
// routing key and CC keys, serialize to UTF-8 JSON, validate the serialized
// message against the declared schema, encode the routing key within its
// declared field budget, publish persistently with the CC header set, wait
// for the broker's confirmation, and record a stats observation. Each stage
// fails with its own
// error type (ArgumentError, ValidationError, EncodingError, BrokerError), so
// callers can tell bad input from broker trouble without string matching.
// Validation never talks to the broker: an invalid message is rejected before
// any wire traffic happens.
//
// # Connection model
//
// A Publisher owns one connection and one confirm-mode channel. There is no
// reconnect logic: when the connection or channel dies, a FaultError is
// delivered on Publisher.Faults and the publisher must be discarded. Process
// supervisors restart cleanly; half-alive publishers do not.
//
// # Reference documents
//
// Snapshot.Reference generates a machine-readable document describing every
// declared exchange, its routing key fields, and its message schema. The
// document is validated against a bundled meta-schema before it leaves the
// process and can be uploaded to blob storage with PublishReference; the
// storage/s3 package provides the S3 implementation.
//
// # Observability
//
// Publish outcomes flow to a configurable Drain: NewMemoryDrain buffers them
// for tests, NewPrometheusDrain exports them as Prometheus metrics, and
// DrainFunc adapts any function. Independent of the drain, the publisher
// keeps per-exchange latency percentiles, throughput, and error breakdowns,
// exposed via Publisher.Infos and served as JSON by Publisher.InfoHandler.
// PublishHooks add application callbacks around every attempt, and spans are
// emitted through OpenTelemetry for every publish.
package pulseflow
