// Package apperr defines the error kinds shared by the services and their
// mapping onto HTTP statuses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindInvalidInput
	KindInvalidPeriod
	KindInvalidDuration
	KindInvalidReference
	KindNotPending
	KindMissingRate
	KindNotFound
	KindConflict
	KindUnauthorized
	KindForbidden
	KindExternalFailure
)

var kindNames = map[Kind]string{
	KindInternal:         "internal",
	KindInvalidInput:     "invalid_input",
	KindInvalidPeriod:    "invalid_period",
	KindInvalidDuration:  "invalid_duration",
	KindInvalidReference: "invalid_reference",
	KindNotPending:       "not_pending",
	KindMissingRate:      "missing_rate",
	KindNotFound:         "not_found",
	KindConflict:         "conflict",
	KindUnauthorized:     "unauthorized",
	KindForbidden:        "forbidden",
	KindExternalFailure:  "external_failure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "internal"
}

// HTTPStatus is the response code used for errors of this kind.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindInvalidInput, KindInvalidPeriod, KindInvalidDuration, KindInvalidReference, KindNotPending, KindMissingRate:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinels like ErrNotFound work
// with errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrInvalidPeriod    = &Error{Kind: KindInvalidPeriod}
	ErrInvalidDuration  = &Error{Kind: KindInvalidDuration}
	ErrInvalidReference = &Error{Kind: KindInvalidReference}
	ErrNotPending       = &Error{Kind: KindNotPending}
	ErrMissingRate      = &Error{Kind: KindMissingRate}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrExternalFailure  = &Error{Kind: KindExternalFailure}
)

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind carried by err, KindInternal when it has none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// StoreViolation names the constraint family a store error belongs to.
type StoreViolation int

const (
	ViolationNone StoreViolation = iota
	ViolationUnique
	ViolationForeignKey
	ViolationNotNull
)

// Violation inspects a store error. Translated gorm errors and postgres
// SQLSTATE codes are checked first, then driver message signatures.
func Violation(err error) StoreViolation {
	if err == nil {
		return ViolationNone
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ViolationUnique
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ViolationForeignKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ViolationUnique
		case "23503":
			return ViolationForeignKey
		case "23502":
			return ViolationNotNull
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"), strings.Contains(msg, "unique constraint"):
		return ViolationUnique
	case strings.Contains(msg, "foreign key"):
		return ViolationForeignKey
	case strings.Contains(msg, "not-null constraint"), strings.Contains(msg, "not null constraint"):
		return ViolationNotNull
	}
	return ViolationNone
}

// Classify turns a raw store or collaborator error into a kinded error.
// Errors that already carry a kind are returned unchanged.
func Classify(err error, what string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Wrap(KindNotFound, err, "%s not found", what)
	}
	switch Violation(err) {
	case ViolationUnique:
		return Wrap(KindConflict, err, "%s already exists", what)
	case ViolationForeignKey:
		return Wrap(KindConflict, err, "%s references a missing or still referenced record", what)
	case ViolationNotNull:
		return Wrap(KindInvalidInput, err, "%s is missing a required field", what)
	}
	return Wrap(KindExternalFailure, err, "%s: store failure", what)
}
