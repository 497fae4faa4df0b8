package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// FieldError names one field that failed one validate tag.
type FieldError struct {
	Field string
	Tag   string
}

// Error is returned by Struct when one or more fields fail validation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, fe := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field, fe.Tag))
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether field failed any tag.
func (e *Error) Has(field string) bool {
	for _, fe := range e.Fields {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// Struct validates the given struct using its validate tags.
// Field failures are returned as *Error; anything else (e.g. a non-struct argument) as-is.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		out := &Error{Fields: make([]FieldError, 0, len(ve))}
		for _, fe := range ve {
			out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Tag: fe.Tag()})
		}
		return out
	}
	return nil
}
