package runtime

import (
	"fmt"

	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
)

// maxRoutingKeyBytes is the broker's hard ceiling on routing key length.
const maxRoutingKeyBytes = 255

// placeholder is the segment emitted for optional fields with no value.
const placeholder = "_"

// MessageBuilder produces the message body from the arguments of one publish
// call. The returned value must marshal to a JSON document conforming to the
// declaration's schema.
type MessageBuilder func(args ...any) (any, error)

// RoutingKeyBuilder produces either a complete routing key string or a
// map[string]any keyed by routing key field name.
type RoutingKeyBuilder func(args ...any) (any, error)

// CCBuilder produces zero or more additional routing keys the message is
// CC'd to. Queues bound to any of them receive the one published message.
type CCBuilder func(args ...any) ([]string, error)

// RoutingKeyField describes one dot-separated segment of a routing key.
type RoutingKeyField struct {
	// Name is the key the value is looked up under when the routing key
	// builder returns a mapping. Unique within a declaration.
	Name string

	// Summary documents the field in the reference document.
	Summary string

	// MultipleWords allows the encoded value to contain the '.' separator.
	// At most one field per declaration may set this.
	MultipleWords bool

	// Required fields must carry a value on every publish. Optional fields
	// encode as "_" when no value is supplied.
	Required bool

	// Constant pins the field to a fixed value. Constant fields may leave
	// MaxSize unset: it defaults to the constant's length.
	Constant string

	// MaxSize is the upper bound, in bytes, on the encoded value.
	MaxSize int
}

// EffectiveMaxSize returns MaxSize, defaulted to the constant's length when a
// constant field leaves MaxSize unset.
func (f RoutingKeyField) EffectiveMaxSize() int {
	if f.MaxSize == 0 && f.Constant != "" {
		return len(f.Constant)
	}
	return f.MaxSize
}

// Declaration describes one named event type: its exchange, documentation,
// routing key schema, message schema, and the three builders that turn
// publish arguments into a message, a routing key, and CC keys.
type Declaration struct {
	// Exchange is the wire-level exchange name suffix. The effective
	// exchange prefix is prepended at connect time. Unique across the
	// registry.
	Exchange string

	// Name is the client-facing identifier publishes are issued under.
	// Unique across the registry.
	Name string

	Title       string
	Description string

	// RoutingKey is the ordered sequence of fields the routing key is
	// encoded from.
	RoutingKey []RoutingKeyField

	// Schema is the URI of the JSON schema every published message must
	// conform to. A registry-wide schema prefix, when configured, is
	// prepended at declare time.
	Schema string

	MessageBuilder    MessageBuilder
	RoutingKeyBuilder RoutingKeyBuilder
	CCBuilder         CCBuilder
}

// clone returns a deep copy. Builders are shared: they are immutable by
// contract.
func (d *Declaration) clone() *Declaration {
	out := *d
	if d.RoutingKey != nil {
		out.RoutingKey = make([]RoutingKeyField, len(d.RoutingKey))
		copy(out.RoutingKey, d.RoutingKey)
	}
	return &out
}

// validate checks the declaration in isolation. Registry-level uniqueness is
// checked by Declare. The returned error becomes the cause of a
// DeclarationError.
func (d *Declaration) validate() error {
	if d.Exchange == "" {
		return errspkg.ErrExchangeRequired
	}
	if d.Name == "" {
		return errspkg.ErrNameRequired
	}
	if d.Title == "" {
		return errspkg.ErrTitleRequired
	}
	if d.Description == "" {
		return errspkg.ErrDescriptionRequired
	}
	if d.Schema == "" {
		return errspkg.ErrSchemaRequired
	}
	if d.MessageBuilder == nil || d.RoutingKeyBuilder == nil || d.CCBuilder == nil {
		return errspkg.ErrBuildersRequired
	}
	return d.validateRoutingKey()
}

func (d *Declaration) validateRoutingKey() error {
	seen := make(map[string]struct{}, len(d.RoutingKey))
	multiWord := ""
	budget := 0

	for i, f := range d.RoutingKey {
		if f.Name == "" {
			return fmt.Errorf("routing key field %d: name is required", i)
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("routing key field %q: duplicate name", f.Name)
		}
		seen[f.Name] = struct{}{}

		if f.MultipleWords {
			if multiWord != "" {
				return fmt.Errorf("routing key fields %q and %q both allow multiple words", multiWord, f.Name)
			}
			multiWord = f.Name
		}

		if f.MaxSize < 0 {
			return fmt.Errorf("routing key field %q: maxSize cannot be negative", f.Name)
		}
		if f.Constant != "" && f.MaxSize > 0 && f.MaxSize < len(f.Constant) {
			return fmt.Errorf("routing key field %q: maxSize %d is smaller than its constant %q", f.Name, f.MaxSize, f.Constant)
		}
		size := f.EffectiveMaxSize()
		if size <= 0 {
			return fmt.Errorf("routing key field %q: a positive maxSize is required", f.Name)
		}
		budget += size
	}

	if len(d.RoutingKey) > 1 {
		budget += len(d.RoutingKey) - 1
	}
	if budget > maxRoutingKeyBytes {
		return fmt.Errorf("routing key can grow to %d bytes including separators, the broker limit is %d", budget, maxRoutingKeyBytes)
	}
	return nil
}
