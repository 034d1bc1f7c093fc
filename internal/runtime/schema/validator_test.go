package schema

import (
	"strings"
	"testing"

	"github.com/drblury/pulseflow/internal/runtime/jsoncodec"
)

const orderSchemaURI = "https://schemas.example.com/v1/order.json"

const orderSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"properties": {
		"orderId": {"type": "string"},
		"total": {"type": "number"}
	},
	"required": ["orderId", "total"],
	"additionalProperties": false
}`

func TestValidateConformingInstance(t *testing.T) {
	v := NewValidator()
	if err := v.Register(orderSchemaURI, []byte(orderSchema)); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	err := v.ValidateJSON(orderSchemaURI, []byte(`{"orderId": "o-123", "total": 12.5}`))
	if err != nil {
		t.Fatalf("expected instance to validate, got %v", err)
	}
}

func TestValidateRejectsInvalidInstance(t *testing.T) {
	v := NewValidator()
	if err := v.Register(orderSchemaURI, []byte(orderSchema)); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	err := v.ValidateJSON(orderSchemaURI, []byte(`{"orderId": 7}`))
	if err == nil {
		t.Fatal("expected validation failure")
	}

	violations := Violations(err)
	if len(violations) == 0 {
		t.Fatal("expected flattened violations")
	}
	joined := strings.Join(violations, "\n")
	if !strings.Contains(joined, "total") && !strings.Contains(joined, "orderId") {
		t.Fatalf("expected violations to mention failing properties, got %q", joined)
	}
}

func TestValidateLargeIntegerBounds(t *testing.T) {
	v := NewValidator()
	schema := `{"type": "object", "properties": {"n": {"type": "integer", "maximum": 9007199254740993}}}`
	if err := v.Register("https://schemas.example.com/v1/big.json", []byte(schema)); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// 2^53+1 round-trips only because instances decode with json.Number.
	err := v.ValidateJSON("https://schemas.example.com/v1/big.json", []byte(`{"n": 9007199254740993}`))
	if err != nil {
		t.Fatalf("expected large integer to validate, got %v", err)
	}
}

func TestCompileUnknownURIFails(t *testing.T) {
	v := NewValidator()
	if _, err := v.Compile("https://schemas.example.com/v1/missing.json"); err == nil {
		t.Fatal("expected compile of unregistered schema to fail")
	}
}

func TestCompileCachesSchema(t *testing.T) {
	v := NewValidator()
	if err := v.Register(orderSchemaURI, []byte(orderSchema)); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	first, err := v.Compile(orderSchemaURI)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	second, err := v.Compile(orderSchemaURI)
	if err != nil {
		t.Fatalf("second compile failed: %v", err)
	}
	if first != second {
		t.Fatal("expected compiled schema to be cached")
	}
}

func TestViolationsOnNonValidationError(t *testing.T) {
	v := NewValidator()
	_, err := v.Compile("https://schemas.example.com/v1/missing.json")
	if got := Violations(err); got != nil {
		t.Fatalf("expected nil violations for non-validation error, got %v", got)
	}
}

func TestReferenceMetaSchemaAcceptsMinimalDocument(t *testing.T) {
	v := NewValidator()

	doc := map[string]any{
		"version":        0,
		"$schema":        ReferenceSchemaURI + "#",
		"title":          "Test Exchanges",
		"description":    "Exchanges used in tests",
		"exchangePrefix": "exchange/test/v1/",
		"entries": []any{
			map[string]any{
				"type":        "topic-exchange",
				"exchange":    "task-defined",
				"name":        "taskDefined",
				"title":       "Task Defined",
				"description": "A task was defined",
				"routingKey": []any{
					map[string]any{
						"name":          "taskId",
						"summary":       "Task identifier",
						"multipleWords": false,
						"required":      true,
					},
				},
				"schema": "https://schemas.example.com/v1/task.json",
			},
		},
	}

	raw, err := jsoncodec.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := v.ValidateJSON(ReferenceSchemaURI, raw); err != nil {
		t.Fatalf("expected reference document to validate, got %v", err)
	}
}

func TestReferenceMetaSchemaRejectsUnknownEntryType(t *testing.T) {
	v := NewValidator()

	doc := map[string]any{
		"version":        0,
		"$schema":        ReferenceSchemaURI + "#",
		"title":          "Test Exchanges",
		"description":    "Exchanges used in tests",
		"exchangePrefix": "",
		"entries": []any{
			map[string]any{
				"type":        "direct-exchange",
				"exchange":    "task-defined",
				"name":        "taskDefined",
				"title":       "Task Defined",
				"description": "A task was defined",
				"routingKey":  []any{},
				"schema":      "https://schemas.example.com/v1/task.json",
			},
		},
	}

	raw, err := jsoncodec.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := v.ValidateJSON(ReferenceSchemaURI, raw); err == nil {
		t.Fatal("expected unknown entry type to be rejected")
	}
}
