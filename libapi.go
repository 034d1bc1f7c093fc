package pulseflow

import (
	"github.com/invopop/jsonschema"

	runtimepkg "github.com/drblury/pulseflow/internal/runtime"
	configpkg "github.com/drblury/pulseflow/internal/runtime/config"
	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
	idspkg "github.com/drblury/pulseflow/internal/runtime/ids"
	jsoncodec "github.com/drblury/pulseflow/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/pulseflow/internal/runtime/logging"
	schemapkg "github.com/drblury/pulseflow/internal/runtime/schema"
	statspkg "github.com/drblury/pulseflow/internal/runtime/stats"
)

type (
	Config = configpkg.Config

	// Declaring exchanges
	Registry        = runtimepkg.Registry
	Options         = runtimepkg.Options
	Durability      = runtimepkg.Durability
	Declaration     = runtimepkg.Declaration
	RoutingKeyField = runtimepkg.RoutingKeyField
	Snapshot        = runtimepkg.Snapshot

	MessageBuilder    = runtimepkg.MessageBuilder
	RoutingKeyBuilder = runtimepkg.RoutingKeyBuilder
	CCBuilder         = runtimepkg.CCBuilder

	// Publishing
	Publisher             = runtimepkg.Publisher
	PublisherDependencies = runtimepkg.PublisherDependencies
	PublishHooks          = runtimepkg.PublishHooks
	PublishContext        = runtimepkg.PublishContext

	// Reference documents
	ReferenceDocument = runtimepkg.ReferenceDocument
	ReferenceEntry    = runtimepkg.ReferenceEntry
	ReferenceKeyField = runtimepkg.ReferenceKeyField
	ReferenceStore    = runtimepkg.ReferenceStore

	// Schema handling
	Validator = schemapkg.Validator

	// Stats observations and per-exchange metrics
	Observation       = statspkg.Observation
	Drain             = statspkg.Drain
	DrainFunc         = statspkg.DrainFunc
	MemoryDrain       = statspkg.MemoryDrain
	PrometheusDrain   = statspkg.PrometheusDrain
	ExchangeInfo      = statspkg.ExchangeInfo
	LatencyMetrics    = statspkg.LatencyMetrics
	ThroughputMetrics = statspkg.ThroughputMetrics
	ErrorBreakdown    = statspkg.ErrorBreakdown
	ResourceUsage     = statspkg.ResourceUsage

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLogger               = loggingpkg.EntryLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	// Error types, one per pipeline stage
	DeclarationError     = errspkg.DeclarationError
	ConnectionError      = errspkg.ConnectionError
	ArgumentError        = errspkg.ArgumentError
	EncodingError        = errspkg.EncodingError
	ValidationError      = errspkg.ValidationError
	BrokerError          = errspkg.BrokerError
	ReferenceSchemaError = errspkg.ReferenceSchemaError
	FaultError           = errspkg.FaultError
	FaultKind            = errspkg.FaultKind
)

var (
	NewRegistry = runtimepkg.NewRegistry
	Connect     = runtimepkg.Connect

	PublishReference = runtimepkg.PublishReference

	// Pre-built publish lifecycle hooks
	LoggingHooks  = runtimepkg.LoggingHooks
	MetricsHooks  = runtimepkg.MetricsHooks
	AlertingHooks = runtimepkg.AlertingHooks

	NewValidator        = schemapkg.NewValidator
	ReferenceMetaSchema = schemapkg.ReferenceMetaSchema
	SchemaViolations    = schemapkg.Violations

	NewMemoryDrain     = statspkg.NewMemoryDrain
	NewPrometheusDrain = statspkg.NewPrometheusDrain

	NewSlogServiceLogger = loggingpkg.NewSlogServiceLogger
	NewNopLogger         = loggingpkg.NewNopLogger

	ValidateConfig = configpkg.ValidateConfig

	CreateULID = idspkg.CreateULID

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrExchangeRequired    = errspkg.ErrExchangeRequired
	ErrNameRequired        = errspkg.ErrNameRequired
	ErrTitleRequired       = errspkg.ErrTitleRequired
	ErrDescriptionRequired = errspkg.ErrDescriptionRequired
	ErrSchemaRequired      = errspkg.ErrSchemaRequired
	ErrBuildersRequired    = errspkg.ErrBuildersRequired
	ErrUnknownEntry        = errspkg.ErrUnknownEntry
	ErrPublisherClosed     = errspkg.ErrPublisherClosed
	ErrConnectionClosed    = errspkg.ErrConnectionClosed
	ErrSnapshotRequired    = errspkg.ErrSnapshotRequired
	ErrStoreRequired       = errspkg.ErrStoreRequired
)

// Exchange durability settings.
const (
	DurabilityUnset = runtimepkg.DurabilityUnset
	Durable         = runtimepkg.Durable
	Transient       = runtimepkg.Transient
)

// Fault kinds delivered on Publisher.Faults.
const (
	FaultConnection = errspkg.FaultConnection
	FaultChannel    = errspkg.FaultChannel
)

// ReferenceSchemaURI identifies the bundled meta-schema that generated
// reference documents are validated against.
const ReferenceSchemaURI = schemapkg.ReferenceSchemaURI

// LevelTrace is the slog level used for trace output.
const LevelTrace = loggingpkg.LevelTrace

// ReflectSchema derives a JSON schema document from T's struct tags. Register
// the result on a Validator with RegisterSchemaType or RegisterValue.
func ReflectSchema[T any]() *jsonschema.Schema {
	return schemapkg.Reflect[T]()
}

// RegisterSchemaType reflects T into a schema document and registers it on v
// under uri.
func RegisterSchemaType[T any](v *Validator, uri string) error {
	return schemapkg.RegisterType[T](v, uri)
}

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}
