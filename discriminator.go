package ipcwire

// Discriminator decides whether a payload matches a shape, using cheap field
// presence and value checks. Combine them with MatchGuard to reject
// malformed messages before parameter binding.
type Discriminator interface {
	Match(v View) bool
}

// HasFields matches when every path exists.
func HasFields(paths ...string) Discriminator {
	return hasFields{paths: paths}
}

type hasFields struct {
	paths []string
}

func (d hasFields) Match(v View) bool {
	for _, p := range d.paths {
		if !v.HasField(p) {
			return false
		}
	}
	return true
}

// FieldEquals matches when path holds the string value.
func FieldEquals(path, value string) Discriminator {
	return fieldEquals{path: path, value: value}
}

type fieldEquals struct {
	path  string
	value string
}

func (d fieldEquals) Match(v View) bool {
	s, ok := v.GetString(d.path)
	return ok && s == d.value
}

// FieldIn matches when path holds one of the string values.
func FieldIn(path string, values ...string) Discriminator {
	return fieldIn{path: path, values: values}
}

type fieldIn struct {
	path   string
	values []string
}

func (d fieldIn) Match(v View) bool {
	s, ok := v.GetString(d.path)
	if !ok {
		return false
	}
	for _, want := range d.values {
		if s == want {
			return true
		}
	}
	return false
}

// And matches when all discriminators match.
func And(ds ...Discriminator) Discriminator {
	return and{ds: ds}
}

type and struct {
	ds []Discriminator
}

func (d and) Match(v View) bool {
	for _, disc := range d.ds {
		if !disc.Match(v) {
			return false
		}
	}
	return true
}

// Or matches when any discriminator matches.
func Or(ds ...Discriminator) Discriminator {
	return or{ds: ds}
}

type or struct {
	ds []Discriminator
}

func (d or) Match(v View) bool {
	for _, disc := range d.ds {
		if disc.Match(v) {
			return true
		}
	}
	return false
}

// Not inverts d.
func Not(d Discriminator) Discriminator {
	return not{d: d}
}

type not struct {
	d Discriminator
}

func (d not) Match(v View) bool {
	return !d.d.Match(v)
}
