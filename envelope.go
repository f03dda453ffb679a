package ipcwire

import (
	"reflect"

	"github.com/bjaus/ipcwire/internal/jsoncodec"
)

// Failure is the response sent for a denied dispatch or an error no filter
// handled.
type Failure struct {
	Success bool
	Error   error
}

// NewFailure returns a Failure for err.
func NewFailure(err error) Failure {
	return Failure{Success: false, Error: err}
}

type failureJSON struct {
	Success bool      `json:"success"`
	Error   errorJSON `json:"error"`
}

type errorJSON struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// MarshalJSON renders the error as {"name", "message"} so the envelope
// survives encoding on any transport.
func (f Failure) MarshalJSON() ([]byte, error) {
	out := failureJSON{Success: f.Success}
	if f.Error != nil {
		out.Error = errorJSON{Name: errorName(f.Error), Message: f.Error.Error()}
	}
	return jsoncodec.Marshal(out)
}

// IsFailure reports whether a dispatch result is a Failure.
func IsFailure(v any) (Failure, bool) {
	switch f := v.(type) {
	case Failure:
		return f, true
	case *Failure:
		if f != nil {
			return *f, true
		}
	}
	return Failure{}, false
}

func errorName(err error) string {
	t := reflect.TypeOf(err)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Name() == "" {
		return "Error"
	}
	return t.Name()
}
