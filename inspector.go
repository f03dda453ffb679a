package ipcwire

import (
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/bjaus/ipcwire/internal/jsoncodec"
)

// ErrInvalidJSON is returned when a payload cannot be read as JSON.
var ErrInvalidJSON = errors.New("payload is not valid JSON")

// Inspector turns a payload into a View.
type Inspector interface {
	Inspect(payload any) (View, error)
}

// View answers path queries against one payload. Paths use gjson syntax:
// "user.id", "items.0.sku", "tags.#".
type View interface {
	// HasField reports whether path resolves to a value, null included.
	HasField(path string) bool

	// GetString returns the value at path when it is a JSON string.
	GetString(path string) (string, bool)

	// GetBytes returns the JSON text at path, exactly as it appears.
	GetBytes(path string) ([]byte, bool)

	// Get returns the value at path decoded into strings, float64s, bools,
	// []any and map[string]any.
	Get(path string) (any, bool)
}

// JSONInspector returns the gjson-backed Inspector. Byte slices,
// json.RawMessage and strings are taken as JSON text; other payloads are
// encoded first.
func JSONInspector() Inspector {
	return gjsonInspector{}
}

type gjsonInspector struct{}

func (gjsonInspector) Inspect(payload any) (View, error) {
	raw, err := payloadJSON(payload)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return payloadView{root: gjson.ParseBytes(raw)}, nil
}

func payloadJSON(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	}
	raw, err := jsoncodec.Marshal(payload)
	if err != nil {
		return nil, errors.Join(ErrInvalidJSON, err)
	}
	return raw, nil
}

type payloadView struct {
	root gjson.Result
}

func (v payloadView) lookup(path string) (gjson.Result, bool) {
	r := v.root.Get(path)
	return r, r.Exists()
}

func (v payloadView) HasField(path string) bool {
	_, ok := v.lookup(path)
	return ok
}

func (v payloadView) GetString(path string) (string, bool) {
	r, ok := v.lookup(path)
	if !ok || r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

func (v payloadView) GetBytes(path string) ([]byte, bool) {
	r, ok := v.lookup(path)
	if !ok {
		return nil, false
	}
	return []byte(r.Raw), true
}

func (v payloadView) Get(path string) (any, bool) {
	r, ok := v.lookup(path)
	if !ok {
		return nil, false
	}
	return r.Value(), true
}
