// Package jsoncodec centralizes JSON encoding for Pulseflow. Message bodies,
// reference documents, and schema payloads all go through sonic's
// stdlib-compatible config.
package jsoncodec

import (
	"bytes"
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return defaultConfig.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

func Encode(w io.Writer, v any) error {
	enc := defaultConfig.NewEncoder(w)
	return enc.Encode(v)
}

func Decode(r io.Reader, v any) error {
	dec := defaultConfig.NewDecoder(r)
	return dec.Decode(v)
}

// Value decodes data into the generic form (map[string]any, []any, strings,
// bools, nil) consumed by the schema validator. Numbers are kept as
// json.Number so large integers survive the round trip.
func Value(data []byte) (any, error) {
	dec := defaultConfig.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
