package validation

import (
	"fmt"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldErrors maps JSON field names to validation messages.
type FieldErrors map[string][]string

// ValidationError satisfies httpx.DomainProblem structurally, so httpx.ToProblem can render it.
type ValidationError struct {
	summary string
	fields  FieldErrors
}

// NewError builds a ValidationError for a single field.
func NewError(field, message string) *ValidationError {
	fields := FieldErrors{field: {message}}
	return &ValidationError{summary: summarize(fields), fields: fields}
}

func (e *ValidationError) Error() string { return e.summary }

// Fields returns the per-field messages.
func (e *ValidationError) Fields() FieldErrors { return e.fields }

func (e *ValidationError) ProblemCode() string    { return "ErrValidation" }
func (e *ValidationError) ProblemStatus() int     { return http.StatusBadRequest }
func (e *ValidationError) ProblemTitle() string   { return "Validation error" }
func (e *ValidationError) ProblemDetail() string  { return e.summary }
func (e *ValidationError) ProblemTypeURI() string { return "urn:problem:validation-error" }
func (e *ValidationError) ProblemContext() any    { return map[string]any{"fields": e.fields} }

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.Split(fld.Tag.Get("json"), ",")[0]
			if name == "" || name == "-" {
				return lowerFirst(fld.Name)
			}
			return name
		})
	})
	return instance
}

// ValidateStruct validates v against its `validate` tags and returns a *ValidationError on failure.
func ValidateStruct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ValidationError{summary: "validation failed", fields: FieldErrors{}}
	}
	fields := make(FieldErrors)
	for _, fe := range verrs {
		fields[fe.Field()] = append(fields[fe.Field()], messageForTag(fe))
	}
	return &ValidationError{summary: summarize(fields), fields: fields}
}

// IsEmail reports whether s is a syntactically valid email address.
func IsEmail(s string) bool {
	return get().Var(s, "required,email") == nil
}

func messageForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min", "gte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "eqfield":
		return fmt.Sprintf("must match %s", lowerFirst(fe.Param()))
	case "uuid", "uuid4", "uuid7":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}

// summarize produces "email must be a valid email, and 2 other errors".
// Fields are visited in sorted order so the summary is stable.
func summarize(fields FieldErrors) string {
	keys := make([]string, 0, len(fields))
	total := 0
	for k, msgs := range fields {
		if len(msgs) > 0 {
			keys = append(keys, k)
			total += len(msgs)
		}
	}
	if len(keys) == 0 {
		return "validation failed"
	}
	sort.Strings(keys)
	if _, ok := fields["email"]; ok {
		keys[0] = "email"
	}
	head := fmt.Sprintf("%s %s", keys[0], fields[keys[0]][0])
	if others := total - 1; others > 0 {
		return fmt.Sprintf("%s, and %d other error%s", head, others, plural(others))
	}
	return head
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToLower(string(r[0])))[0]
	return string(r)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
