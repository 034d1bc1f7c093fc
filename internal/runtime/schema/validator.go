// Package schema owns JSON schema handling: registering schema documents,
// compiling them on demand, validating message instances, and deriving
// schemas from Go payload types. Schemas are registered as raw documents and
// compiled locally, so validation never performs network I/O.
package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/drblury/pulseflow/internal/runtime/jsoncodec"
)

// ReferenceSchemaURI identifies the bundled meta-schema that exchange
// reference documents are validated against.
const ReferenceSchemaURI = "https://schemas.pulseflow.io/base/v1/exchanges-reference.json"

//go:embed exchanges-reference.json
var referenceMetaSchema []byte

// ReferenceMetaSchema returns the bundled reference meta-schema document.
func ReferenceMetaSchema() []byte {
	out := make([]byte, len(referenceMetaSchema))
	copy(out, referenceMetaSchema)
	return out
}

// Validator compiles and caches JSON schemas by URI and validates decoded
// JSON values against them. Safe for concurrent use.
type Validator struct {
	mu       sync.Mutex
	compiler *jsonschema.Compiler
	compiled map[string]*jsonschema.Schema
}

// NewValidator creates a Validator with draft-07 as the default dialect. The
// bundled reference meta-schema is pre-registered.
func NewValidator() *Validator {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	v := &Validator{
		compiler: compiler,
		compiled: make(map[string]*jsonschema.Schema),
	}
	if err := v.Register(ReferenceSchemaURI, referenceMetaSchema); err != nil {
		panic("pulseflow: bundled reference meta-schema is invalid: " + err.Error())
	}
	return v
}

// Register adds a raw schema document under uri. Registration must happen
// before the first validation against that uri.
func (v *Validator) Register(uri string, raw []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.compiler.AddResource(uri, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("register schema %s: %w", uri, err)
	}
	return nil
}

// RegisterValue marshals doc to JSON and registers it under uri. Use it with
// Reflect to declare message schemas from Go payload types.
func (v *Validator) RegisterValue(uri string, doc any) error {
	raw, err := jsoncodec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("register schema %s: %w", uri, err)
	}
	return v.Register(uri, raw)
}

// Compile resolves uri to a compiled schema, caching the result. It fails
// when the uri was never registered or the document is not a valid schema.
func (v *Validator) Compile(uri string) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.compiled[uri]; ok {
		return s, nil
	}
	s, err := v.compiler.Compile(uri)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", uri, err)
	}
	v.compiled[uri] = s
	return s, nil
}

// Validate checks instance, a decoded JSON value, against the schema
// registered under uri. The returned error is a *jsonschema.ValidationError
// when the instance does not conform.
func (v *Validator) Validate(uri string, instance any) error {
	s, err := v.Compile(uri)
	if err != nil {
		return err
	}
	return s.Validate(instance)
}

// ValidateJSON decodes raw and validates it against the schema registered
// under uri.
func (v *Validator) ValidateJSON(uri string, raw []byte) error {
	instance, err := jsoncodec.Value(raw)
	if err != nil {
		return fmt.Errorf("decode instance: %w", err)
	}
	return v.Validate(uri, instance)
}

// Violations flattens a validation error into one line per failed leaf
// constraint, "<instance location>: <message>". Non-validation errors yield
// nil.
func Violations(err error) []string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	var out []string
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			out = append(out, loc+": "+e.Message)
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}
