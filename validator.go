package ipcwire

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationFailure lists the constraints one field violated, keyed by
// constraint name.
type ValidationFailure struct {
	Field       string
	Value       any
	Constraints map[string]string
}

// Validator checks a transformed payload. It returns one failure per invalid
// field, in field order, or none when the value is valid.
type Validator interface {
	Validate(value any) ([]ValidationFailure, error)
}

// StructValidator validates structs with go-playground/validator tags. Field
// names are taken from json tags when present.
type StructValidator struct {
	validate *validator.Validate
}

// NewStructValidator returns a validator reading rules from tagName, or from
// "validate" when tagName is empty.
func NewStructValidator(tagName string) *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	if tagName != "" {
		v.SetTagName(tagName)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}
		return name
	})
	return &StructValidator{validate: v}
}

// Validate implements Validator. Values that are not structs (or pointers to
// structs) carry no rules and are always valid.
func (s *StructValidator) Validate(value any) ([]ValidationFailure, error) {
	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, nil
	}

	err := s.validate.Struct(rv.Interface())
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	var failures []ValidationFailure
	index := make(map[string]int)
	for _, fe := range verrs {
		field := fieldPath(fe)
		i, ok := index[field]
		if !ok {
			i = len(failures)
			index[field] = i
			failures = append(failures, ValidationFailure{
				Field:       field,
				Value:       fe.Value(),
				Constraints: make(map[string]string),
			})
		}
		failures[i].Constraints[fe.Tag()] = constraintMessage(field, fe)
	}
	return failures, nil
}

// fieldPath drops the root struct name from the error namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func constraintMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must have length %s", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt", "gte", "lt", "lte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	case "dive":
		return fmt.Sprintf("%s contains invalid values", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, fe.Tag())
	}
}
