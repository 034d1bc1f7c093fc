package runtime

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	errspkg "github.com/drblury/pulseflow/internal/runtime/errors"
)

// encodeRoutingKey turns a routing key builder's result into the final
// dot-joined key for decl. A string result is used verbatim; a mapping is
// encoded field by field in declared order.
func encodeRoutingKey(decl *Declaration, built any) (string, error) {
	switch rk := built.(type) {
	case string:
		if len(rk) > maxRoutingKeyBytes {
			return "", errspkg.NewEncodingError(decl.Name, "",
				fmt.Sprintf("routing key is %d bytes, the broker limit is %d", len(rk), maxRoutingKeyBytes))
		}
		return rk, nil
	case map[string]any:
		return encodeRoutingKeyFields(decl, rk)
	default:
		return "", errspkg.NewArgumentError(decl.Name, "routing key",
			fmt.Errorf("builder must return a string or map[string]any, got %T", built))
	}
}

func encodeRoutingKeyFields(decl *Declaration, values map[string]any) (string, error) {
	segments := make([]string, 0, len(decl.RoutingKey))
	for _, f := range decl.RoutingKey {
		segment, err := encodeField(decl.Name, f, values[f.Name])
		if err != nil {
			return "", err
		}
		segments = append(segments, segment)
	}
	return strings.Join(segments, "."), nil
}

func encodeField(entry string, f RoutingKeyField, value any) (string, error) {
	if f.Constant != "" {
		value = f.Constant
	}
	if absent(value) {
		if f.Required {
			return "", errspkg.NewEncodingError(entry, f.Name, "required field has no value")
		}
		return placeholder, nil
	}

	segment, ok := coerceSegment(value)
	if !ok {
		return "", errspkg.NewEncodingError(entry, f.Name,
			fmt.Sprintf("value of type %T is not a string", value))
	}
	if max := f.EffectiveMaxSize(); len(segment) > max {
		return "", errspkg.NewEncodingError(entry, f.Name,
			fmt.Sprintf("value %q is %d bytes, exceeding maxSize %d", segment, len(segment), max))
	}
	if !f.MultipleWords && strings.Contains(segment, ".") {
		return "", errspkg.NewEncodingError(entry, f.Name,
			fmt.Sprintf("value %q contains '.' but the field does not allow multiple words", segment))
	}
	return segment, nil
}

func absent(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// coerceSegment renders value as a routing key segment. Numbers are encoded
// in their decimal form; everything else must already be a string.
func coerceSegment(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case int:
		return strconv.Itoa(v), true
	case int8:
		return strconv.FormatInt(int64(v), 10), true
	case int16:
		return strconv.FormatInt(int64(v), 10), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint:
		return strconv.FormatUint(uint64(v), 10), true
	case uint8:
		return strconv.FormatUint(uint64(v), 10), true
	case uint16:
		return strconv.FormatUint(uint64(v), 10), true
	case uint32:
		return strconv.FormatUint(uint64(v), 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}
