package runtime

import (
	"context"

	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
	"github.com/drblury/pulseflow/internal/runtime/jsoncodec"
	schemapkg "github.com/drblury/pulseflow/internal/runtime/schema"
)

const (
	referenceVersion   = 0
	referenceEntryType = "topic-exchange"
)

// referenceValidator checks generated reference documents against the bundled
// meta-schema. Shared: the meta-schema never changes at runtime.
var referenceValidator = schemapkg.NewValidator()

// ReferenceDocument is the machine-readable description of every exchange a
// service publishes on, consumed by client generators and documentation
// tooling.
type ReferenceDocument struct {
	Version        int              `json:"version"`
	SchemaRef      string           `json:"$schema"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	ExchangePrefix string           `json:"exchangePrefix"`
	Entries        []ReferenceEntry `json:"entries"`
}

// ReferenceEntry describes one declared exchange. Exchange is the wire-level
// suffix: consumers concatenate ExchangePrefix and Exchange.
type ReferenceEntry struct {
	Type        string              `json:"type"`
	Exchange    string              `json:"exchange"`
	Name        string              `json:"name"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	RoutingKey  []ReferenceKeyField `json:"routingKey"`
	Schema      string              `json:"schema"`
}

// ReferenceKeyField is the documentation-safe subset of a routing key field.
// MaxSize is an internal encoding constraint and is deliberately left out.
type ReferenceKeyField struct {
	Name          string `json:"name"`
	Summary       string `json:"summary"`
	Constant      string `json:"constant,omitempty"`
	MultipleWords bool   `json:"multipleWords"`
	Required      bool   `json:"required"`
}

// Reference builds the reference document for every declaration in the
// snapshot. The exchange prefix is computed the same way Connect computes it:
// username, when non-empty, contributes the identity segment. The snapshot
// options must carry a title and description. The finished document is
// checked against the bundled meta-schema; a failure there is a
// ReferenceSchemaError and means a bug in the registry, not bad caller input.
func (s *Snapshot) Reference(username string) (*ReferenceDocument, error) {
	opts := s.Options()
	if opts.Title == "" {
		return nil, errspkg.ErrTitleRequired
	}
	if opts.Description == "" {
		return nil, errspkg.ErrDescriptionRequired
	}

	entries := make([]ReferenceEntry, 0, s.Len())
	for _, decl := range s.Declarations() {
		fields := make([]ReferenceKeyField, 0, len(decl.RoutingKey))
		for _, f := range decl.RoutingKey {
			fields = append(fields, ReferenceKeyField{
				Name:          f.Name,
				Summary:       f.Summary,
				Constant:      f.Constant,
				MultipleWords: f.MultipleWords,
				Required:      f.Required,
			})
		}
		entries = append(entries, ReferenceEntry{
			Type:        referenceEntryType,
			Exchange:    decl.Exchange,
			Name:        decl.Name,
			Title:       decl.Title,
			Description: decl.Description,
			RoutingKey:  fields,
			Schema:      decl.Schema,
		})
	}

	doc := &ReferenceDocument{
		Version:        referenceVersion,
		SchemaRef:      schemapkg.ReferenceSchemaURI + "#",
		Title:          opts.Title,
		Description:    opts.Description,
		ExchangePrefix: s.EffectiveExchangePrefix(username),
		Entries:        entries,
	}
	if err := validateReferenceDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func validateReferenceDocument(doc *ReferenceDocument) error {
	raw, err := jsoncodec.Marshal(doc)
	if err != nil {
		return errspkg.NewReferenceSchemaError(nil, err)
	}
	if err := referenceValidator.ValidateJSON(schemapkg.ReferenceSchemaURI, raw); err != nil {
		return errspkg.NewReferenceSchemaError(schemapkg.Violations(err), err)
	}
	return nil
}

// ReferenceStore persists reference documents to blob storage.
type ReferenceStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}

// PublishReference uploads doc as indented JSON under key. The document's
// contents are the store collaborator's concern from here on: the core does
// not retry or track the upload.
func PublishReference(ctx context.Context, store ReferenceStore, key string, doc *ReferenceDocument) error {
	if store == nil {
		return errspkg.ErrStoreRequired
	}
	raw, err := jsoncodec.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return store.Put(ctx, key, "application/json", raw)
}
