package common

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationError is one failed rule on one request field.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %s (got %v)", e.Field, e.Message, e.Value)
}

func invalid(field string, value interface{}, msg string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: msg}
}

// Validator collects rule failures across the fields of one request.
type Validator struct {
	errors []ValidationError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field applies rules in order and records every failure.
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

func (v *Validator) HasErrors() bool { return len(v.errors) > 0 }

func (v *Validator) Errors() []ValidationError { return v.errors }

// ErrorMessage joins every failure with "; ".
func (v *Validator) ErrorMessage() string {
	msgs := make([]string, len(v.errors))
	for i, err := range v.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ValidationRule checks one field value and returns nil when it passes.
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required rejects nil, blank strings and empty string slices.
func Required(fieldName string, value interface{}) *ValidationError {
	switch v := value.(type) {
	case nil:
		return invalid(fieldName, value, "is required")
	case string:
		if strings.TrimSpace(v) == "" {
			return invalid(fieldName, value, "is required")
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return invalid(fieldName, value, "is required")
		}
	case []string:
		if len(v) == 0 {
			return invalid(fieldName, value, "is required")
		}
	}
	return nil
}

// MinLength builds a rule requiring at least min runes after trimming.
func MinLength(min int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(strings.TrimSpace(str)) < min {
			return invalid(fieldName, value, fmt.Sprintf("must be at least %d characters", min))
		}
		return nil
	}
}

// MaxLength builds a rule capping string length in runes.
func MaxLength(max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return invalid(fieldName, value, fmt.Sprintf("must be at most %d characters", max))
		}
		return nil
	}
}

// IntRange builds a rule requiring an int in [min,max].
func IntRange(min, max int) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		n, ok := value.(int)
		if !ok {
			return invalid(fieldName, value, "must be an integer")
		}
		if n < min || n > max {
			return invalid(fieldName, value, fmt.Sprintf("must be between %d and %d", min, max))
		}
		return nil
	}
}

// OneOf builds a rule requiring a string from allowed, compared case-insensitively.
func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value interface{}) *ValidationError {
		str, _ := value.(string)
		for _, a := range allowed {
			if strings.EqualFold(a, str) {
				return nil
			}
		}
		return invalid(fieldName, value, "must be one of "+strings.Join(allowed, ", "))
	}
}

// UserID accepts a UUID; empty values are left to Required.
func UserID(fieldName string, value interface{}) *ValidationError {
	str, ok := value.(string)
	if !ok {
		return invalid(fieldName, value, "must be a string")
	}
	if str == "" {
		return nil
	}
	if _, err := uuid.Parse(str); err != nil {
		return invalid(fieldName, value, "must be a valid UUID")
	}
	return nil
}

// ValidateAndReturnError turns collected failures into an InvalidArgument error.
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return InvalidArgumentError(validator.ErrorMessage())
	}
	return nil
}
