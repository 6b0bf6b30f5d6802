package domain

import (
	"errors"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("not found")

// ValidationError captures field level problems that callers surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

func (v *ValidationError) Error() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field := range v.FieldErrors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v.FieldErrors[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

func (v *ValidationError) Add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// OrNil returns nil when no field errors were recorded.
func (v *ValidationError) OrNil() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}
