// Package stats carries per-publish observations to a configured drain and
// keeps per-exchange publish statistics for introspection.
package stats

import (
	"sync"
	"time"
)

// Observation is recorded once per publish call, success or failure.
type Observation struct {
	// Component and Process identify the publishing service.
	Component string `json:"component"`
	Process   string `json:"process"`

	// Duration covers the whole publish pipeline, including the wait for
	// the broker's confirmation.
	Duration time.Duration `json:"duration_ns"`

	// RoutingKeys is the fan-out count: one primary key plus CC keys.
	RoutingKeys int `json:"routing_keys"`

	// PayloadSize is the serialized message size in bytes. Zero when the
	// publish failed before serialization.
	PayloadSize int `json:"payload_size"`

	// Exchange is the declared exchange name, without prefix.
	Exchange string `json:"exchange"`

	// Error reports whether the publish failed at any stage.
	Error bool `json:"error"`
}

// Drain receives observations. Implementations must be safe for concurrent
// use and must not block: a slow drain slows every publish.
type Drain interface {
	Observe(Observation)
}

// DrainFunc adapts a function to the Drain interface.
type DrainFunc func(Observation)

// Observe implements Drain.
func (f DrainFunc) Observe(o Observation) { f(o) }

// MemoryDrain buffers observations in memory. Intended for tests and local
// introspection.
type MemoryDrain struct {
	mu           sync.Mutex
	observations []Observation
}

// NewMemoryDrain creates an empty MemoryDrain.
func NewMemoryDrain() *MemoryDrain {
	return &MemoryDrain{}
}

// Observe implements Drain.
func (m *MemoryDrain) Observe(o Observation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, o)
}

// Observations returns a copy of everything observed so far.
func (m *MemoryDrain) Observations() []Observation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Observation, len(m.observations))
	copy(out, m.observations)
	return out
}

// Len returns the number of observations recorded.
func (m *MemoryDrain) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observations)
}

// Reset discards all recorded observations.
func (m *MemoryDrain) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = nil
}
