// Package shared holds the types that every circulation aggregate depends on:
// the error taxonomy, calendar-date helpers and the event envelope.
package shared

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies domain failures so transport layers can map them to
// status codes without knowing every concrete error type.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindBusinessRule ErrorKind = "BUSINESS_RULE_VIOLATION"
	KindForbidden    ErrorKind = "FORBIDDEN"
)

// KindedError is implemented by every domain error.
type KindedError interface {
	error
	Kind() ErrorKind
}

// KindOf reports the kind of the first domain error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var kinded KindedError
	if errors.As(err, &kinded) {
		return kinded.Kind(), true
	}
	return "", false
}

// ErrValidation reports malformed or missing input, keyed by field name.
type ErrValidation struct {
	Fields map[string]string
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, reason string) ErrValidation {
	return ErrValidation{Fields: map[string]string{field: reason}}
}

func (e ErrValidation) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e ErrValidation) Kind() ErrorKind { return KindValidation }

// ErrInvalidTransition reports a state change the entity's lifecycle forbids.
type ErrInvalidTransition struct {
	Entity string
	From   string
	To     string
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.Entity, e.From, e.To)
}

func (e ErrInvalidTransition) Kind() ErrorKind { return KindBusinessRule }

// ErrForbidden reports a caller acting on records that are not theirs.
type ErrForbidden struct {
	Action string
}

func (e ErrForbidden) Error() string {
	return "not allowed to " + e.Action
}

func (e ErrForbidden) Kind() ErrorKind { return KindForbidden }
