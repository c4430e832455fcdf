// Package validate wraps go-playground/validator with the project's custom types.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/and161185/stockfolio/internal/errs"
)

var (
	once sync.Once
	v    *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
		// Compare decimals numerically so gt/gte tags work on money fields.
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		// Report fields by their JSON name.
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return v
}

// FieldError is one failed constraint.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (f FieldError) String() string {
	if f.Param != "" {
		return fmt.Sprintf("%s: must satisfy %s=%s", f.Field, f.Tag, f.Param)
	}
	return fmt.Sprintf("%s: must satisfy %s", f.Field, f.Tag)
}

// Error is returned by Struct; it matches errs.ErrInvalidInput.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, errs.ErrInvalidInput) hold.
func (e *Error) Is(target error) bool { return target == errs.ErrInvalidInput }

// ByField groups messages per field, the shape used by validation error bodies.
func (e *Error) ByField() map[string][]string {
	out := make(map[string][]string, len(e.Fields))
	for _, f := range e.Fields {
		out[f.Field] = append(out[f.Field], f.String())
	}
	return out
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	out := &Error{Fields: make([]FieldError, 0, len(ves))}
	for _, fe := range ves {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}
