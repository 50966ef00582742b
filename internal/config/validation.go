package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields by their command line name
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("long"); name != "" {
			return name
		}
		return strings.ToLower(f.Name)
	})

	// user:password with a non-empty user part
	if err := v.RegisterValidation("userpass", func(fl validator.FieldLevel) bool {
		_, err := SplitCredentials(fl.Field().String())
		return err == nil
	}); err != nil {
		panic(fmt.Sprintf("config: failed to register userpass validation: %v", err))
	}

	return v
}

// ValidationError represents a single invalid option
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors holds every invalid option found by Validate
type ValidationErrors struct {
	Errors []ValidationError
}

// Error implements the error interface for ValidationErrors
func (v *ValidationErrors) Error() string {
	if len(v.Errors) == 0 {
		return "invalid options"
	}
	messages := make([]string, len(v.Errors))
	for i, e := range v.Errors {
		messages[i] = e.Message
	}
	return "invalid options: " + strings.Join(messages, "; ")
}

// Validate checks the parsed options
func (o *Options) Validate() error {
	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate options: %w", err)
	}

	validationErrs := &ValidationErrors{}
	for _, e := range fieldErrs {
		validationErrs.Errors = append(validationErrs.Errors, ValidationError{
			Field:   e.Field(),
			Message: formatValidationMessage(e),
		})
	}
	return validationErrs
}

// formatValidationMessage creates human-readable error messages
func formatValidationMessage(e validator.FieldError) string {
	field := "--" + e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL", field)
	case "userpass":
		return fmt.Sprintf("%s must be given as username:password", field)
	case "file":
		return fmt.Sprintf("%s must be an existing file", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, e.Tag())
	}
}
