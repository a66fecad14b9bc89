package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Error is a client-side input problem; handlers answer it with 400.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

// Errorf builds a validation Error.
func Errorf(format string, args ...interface{}) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// IsInvalid reports whether err carries a validation Error.
func IsInvalid(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Register adds a custom tag to the shared validator.
func Register(tag string, fn validator.Func) {
	if err := instance().RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// Struct validates v and converts the first failure into a readable Error.
func Struct(v interface{}) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return &Error{Message: strings.Join(msgs, "; ")}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s item(s)", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "uuid":
		return fe.Field() + " must be a valid id"
	case "latitude":
		return fe.Field() + " must be between -90 and 90"
	case "longitude":
		return fe.Field() + " must be between -180 and 180"
	case "url":
		return fe.Field() + " must be a valid URL"
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
