package ipcwire

// ReflectorClass is the token for the framework's metadata reader. It is
// resolvable from any container without registration and is constructed
// fresh on every resolution.
var ReflectorClass = NewClass("Reflector", nil)

// Reflector reads custom metadata from the application's store. Guards
// typically depend on it to read values set with Metadata.Set on the handler
// method or the controller class:
//
//	roles, _ := ipcwire.ReflectValue[[]string](r, RolesKey, ec.Method(), ec.Class())
type Reflector struct {
	meta *Metadata
}

// NewReflector returns a Reflector over m.
func NewReflector(m *Metadata) *Reflector {
	return &Reflector{meta: m}
}

// Get returns the value of key on target, or nil.
func (r *Reflector) Get(key, target any) any {
	v, _ := r.meta.Get(key, target)
	return v
}

// GetAll returns the value of key on each target, nil where absent.
func (r *Reflector) GetAll(key any, targets ...any) []any {
	out := make([]any, len(targets))
	for i, t := range targets {
		out[i] = r.Get(key, t)
	}
	return out
}

// GetAllAndOverride returns the value from the last target that has one.
func (r *Reflector) GetAllAndOverride(key any, targets ...any) any {
	values := r.GetAll(key, targets...)
	for i := len(values) - 1; i >= 0; i-- {
		if values[i] != nil {
			return values[i]
		}
	}
	return nil
}

// GetAllAndMerge concatenates the values of all targets. Slice values
// contribute their elements; other values are appended as-is.
func (r *Reflector) GetAllAndMerge(key any, targets ...any) []any {
	var out []any
	for _, v := range r.GetAll(key, targets...) {
		switch vv := v.(type) {
		case nil:
		case []any:
			out = append(out, vv...)
		case []string:
			for _, s := range vv {
				out = append(out, s)
			}
		default:
			out = append(out, vv)
		}
	}
	return out
}

// ReflectValue returns the overriding value of key across targets as T.
func ReflectValue[T any](r *Reflector, key any, targets ...any) (T, bool) {
	v, ok := r.GetAllAndOverride(key, targets...).(T)
	return v, ok
}
