package models

import (
	"errors"
	"fmt"

	"bitbucket.org/sistematicapy/taller_backend/utils"
	"github.com/shopspring/decimal"
)

// ErrorKind classifies every failure a core operation can return. The UI
// layer switches on the kind to pick a toast / refresh behavior; the message
// is user-facing and must stay actionable.
type ErrorKind string

const (
	ErrorKindValidation             ErrorKind = "ValidationError"
	ErrorKindInsufficientStock      ErrorKind = "InsufficientStock"
	ErrorKindNotFound               ErrorKind = "NotFound"
	ErrorKindInvalidStateTransition ErrorKind = "InvalidStateTransition"
	ErrorKindTransactionConflict    ErrorKind = "TransactionConflict"
)

type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindValidation, Message: fmt.Sprintf(format, args...)}
}

// NewInsufficientStockError always carries the available quantity so the user
// can correct the input without another round-trip.
func NewInsufficientStockError(requested, available decimal.Decimal) *Error {
	return &Error{
		Kind:    ErrorKindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock: requested %s, available %s", requested.String(), available.String()),
	}
}

func NewNotFoundError(what string) *Error {
	return &Error{Kind: ErrorKindNotFound, Message: what + " not found"}
}

func NewInvalidStateTransitionError(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrorKindInvalidStateTransition, Message: fmt.Sprintf(format, args...)}
}

func NewTransactionConflictError() *Error {
	return &Error{Kind: ErrorKindTransactionConflict, Message: "the record was modified concurrently, please try again"}
}

// KindOf reports the taxonomy kind of err, mapping the shared record-not-found
// sentinel as well. Unknown errors report an empty kind.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, utils.ErrorRecordNotFound) {
		return ErrorKindNotFound
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
