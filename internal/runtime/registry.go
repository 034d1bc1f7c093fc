package runtime

import (
	"fmt"
	"sync"

	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
)

// Durability selects how declared exchanges survive broker restarts.
type Durability int

const (
	// DurabilityUnset inherits the registry default, which is durable.
	DurabilityUnset Durability = iota

	// Durable exchanges survive broker restarts.
	Durable

	// Transient exchanges are deleted when the broker restarts.
	Transient
)

// IsDurable reports whether exchanges should be asserted durable.
func (d Durability) IsDurable() bool {
	return d != Transient
}

// Options carries the registry-wide settings inherited by connect, publish,
// and reference generation.
type Options struct {
	// Title and Description document the service in reference documents.
	Title       string
	Description string

	// ExchangePrefix is prepended to every declared exchange name at
	// connect time. When the broker connection carries a username the
	// effective prefix becomes "exchange/<username>/<ExchangePrefix>".
	ExchangePrefix string

	// SchemaPrefix is prepended to declaration schema URIs at declare time.
	// Configure it before the first Declare call: declarations already
	// stored are not rewritten.
	SchemaPrefix string

	// Durability selects whether exchanges are asserted durable.
	Durability Durability
}

// merge overlays the non-zero fields of o onto base and returns the result.
func (o Options) merge(base Options) Options {
	out := base
	if o.Title != "" {
		out.Title = o.Title
	}
	if o.Description != "" {
		out.Description = o.Description
	}
	if o.ExchangePrefix != "" {
		out.ExchangePrefix = o.ExchangePrefix
	}
	if o.SchemaPrefix != "" {
		out.SchemaPrefix = o.SchemaPrefix
	}
	if o.Durability != DurabilityUnset {
		out.Durability = o.Durability
	}
	return out
}

// Registry accumulates and validates exchange declarations. Declarations are
// added during configuration, before any broker connection exists; Snapshot
// produces the immutable copy everything downstream works from.
type Registry struct {
	mu           sync.RWMutex
	options      Options
	declarations []*Declaration
	byName       map[string]struct{}
	byExchange   map[string]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:     make(map[string]struct{}),
		byExchange: make(map[string]struct{}),
	}
}

// Configure merges the non-zero fields of opts into the registry-wide
// options. Connect, publish, and reference calls inherit the result.
func (r *Registry) Configure(opts Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options = opts.merge(r.options)
}

// Options returns the current registry-wide options.
func (r *Registry) Options() Options {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.options
}

// Declare validates decl and appends it to the registry. The registry is
// left unchanged when a *DeclarationError is returned. When a schema prefix
// is configured the declaration is stored with its schema URI rewritten to
// prefix + schema.
func (r *Registry) Declare(decl Declaration) error {
	if err := decl.validate(); err != nil {
		return errspkg.NewDeclarationError(decl.Exchange, decl.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byExchange[decl.Exchange]; dup {
		return errspkg.NewDeclarationError(decl.Exchange, decl.Name,
			fmt.Errorf("exchange %q is already declared", decl.Exchange))
	}
	if _, dup := r.byName[decl.Name]; dup {
		return errspkg.NewDeclarationError(decl.Exchange, decl.Name,
			fmt.Errorf("name %q is already declared", decl.Name))
	}

	stored := decl.clone()
	if r.options.SchemaPrefix != "" {
		stored.Schema = r.options.SchemaPrefix + stored.Schema
	}

	r.declarations = append(r.declarations, stored)
	r.byName[stored.Name] = struct{}{}
	r.byExchange[stored.Exchange] = struct{}{}
	return nil
}

// Len returns the number of declarations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.declarations)
}

// Snapshot deep-copies the registry into an immutable value. The caller owns
// the snapshot exclusively: later Declare or Configure calls on the live
// registry never affect it.
func (r *Registry) Snapshot() *Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	decls := make([]*Declaration, len(r.declarations))
	byName := make(map[string]*Declaration, len(r.declarations))
	for i, d := range r.declarations {
		c := d.clone()
		decls[i] = c
		byName[c.Name] = c
	}
	return &Snapshot{
		options:      r.options,
		declarations: decls,
		byName:       byName,
	}
}
