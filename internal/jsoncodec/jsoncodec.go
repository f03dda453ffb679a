// Package jsoncodec is the JSON codec shared by the dispatch pipeline and the
// ipc transport.
package jsoncodec

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// Convert re-encodes src into dst, turning loosely typed payloads such as
// map[string]any into the struct dst points to. Byte slices are decoded as
// JSON text.
func Convert(src, dst any) error {
	switch b := src.(type) {
	case json.RawMessage:
		return Unmarshal(b, dst)
	case []byte:
		return Unmarshal(b, dst)
	}
	raw, err := Marshal(src)
	if err != nil {
		return err
	}
	return Unmarshal(raw, dst)
}

// Clone round-trips v through JSON, yielding plain maps, slices, strings,
// float64s, bools and nils.
func Clone(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var out any
	if err := Convert(v, &out); err != nil {
		return nil, err
	}
	return out, nil
}
