package tracker

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ValidationError reports malformed input, an unknown reference or a broken
// business rule. Fields maps the offending input field to its message.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError returns a ValidationError for a single field.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

func invalid(field, msg string) *ValidationError {
	return NewValidationError(field, msg)
}

// invalidf builds a ValidationError whose message is also attributed to field.
func invalidf(field, format string, args ...any) *ValidationError {
	msg := fmt.Sprintf(format, args...)
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}

// formatIDs renders ids as "[1, 2, 3]".
func formatIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
