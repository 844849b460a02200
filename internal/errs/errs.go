// Package errs defines the error taxonomy returned by the ledger core.
//
// All kinds are local and recoverable by the caller; nothing here is retried
// internally.
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindImmutability Kind = "immutability"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindPolicy       Kind = "policy"
)

// Error is a classified core error. Rule names the violated rule or protection.
type Error struct {
	Kind Kind
	Rule string
	Msg  string
}

func (e *Error) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Kind, e.Rule, e.Msg)
}

func newErr(kind Kind, rule, format string, args ...any) *Error {
	return &Error{Kind: kind, Rule: rule, Msg: fmt.Sprintf(format, args...)}
}

// Validation reports a request that breaks an input or state rule.
func Validation(rule, format string, args ...any) *Error {
	return newErr(KindValidation, rule, format, args...)
}

// Immutability reports an attempt to change something that is protected.
func Immutability(rule, format string, args ...any) *Error {
	return newErr(KindImmutability, rule, format, args...)
}

// NotFound reports an unknown id within the organization's scope.
func NotFound(entity, id string) *Error {
	return newErr(KindNotFound, entity, "%s %q not found", entity, id)
}

// Conflict reports a uniqueness violation.
func Conflict(rule, format string, args ...any) *Error {
	return newErr(KindConflict, rule, format, args...)
}

// Policy reports a business policy that rejects an otherwise valid request.
func Policy(rule, format string, args ...any) *Error {
	return newErr(KindPolicy, rule, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// RuleOf returns the rule of the first *Error in err's chain, or "".
func RuleOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Rule
	}
	return ""
}
