// Package apperror defines the domain error taxonomy shared by services and
// handlers. Every error a caller may act on is an *Error with a Kind; anything
// else is treated as an internal failure.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindValidation        Kind = "validation"
	KindInvalidTransition Kind = "invalid_transition"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidRole       Kind = "invalid_role"
	KindInsufficientStock Kind = "insufficient_stock"
	KindNotFound          Kind = "not_found"
	KindAlreadyInState    Kind = "already_in_state"
	KindStaleState        Kind = "stale_state"
	KindInternal          Kind = "internal"
)

// Specific codes carried alongside a Kind.
const (
	CodeValidation             = "validation"
	CodeInvalidLineItem        = "invalid_line_item"
	CodeInvalidImageFormat     = "invalid_image_format"
	CodeAlreadyApproved        = "already_approved"
	CodeAlreadyRejected        = "already_rejected"
	CodeAlreadyAssigned        = "transport_already_assigned"
	CodeCancelCompletedOrder   = "cancel_completed_order"
	CodeCancelDeliveredOrder   = "cancel_delivered_order"
	CodeCancelRejectedOrder    = "cancel_rejected_order"
	CodeCancelAlreadyCancelled = "cancel_already_cancelled"
)

// Error is a recoverable, user-facing failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

// Is matches on Kind and, when the target carries one, on Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrUnauthorized      = &Error{Kind: KindUnauthorized}
	ErrInvalidRole       = &Error{Kind: KindInvalidRole}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAlreadyInState    = &Error{Kind: KindAlreadyInState}
	ErrStaleState        = &Error{Kind: KindStaleState}
)

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: "the given data was invalid", Fields: fields}
}

// InvalidLineItem is a validation failure of an order's items.
func InvalidLineItem(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Code: CodeInvalidLineItem, Message: "the given items were invalid", Fields: fields}
}

func InvalidTransition(from, action string) *Error {
	return &Error{
		Kind:    KindInvalidTransition,
		Message: fmt.Sprintf("cannot %s an order that is %s", action, from),
	}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func InvalidRole(role string) *Error {
	return &Error{Kind: KindInvalidRole, Message: fmt.Sprintf("role %q is not allowed to perform this action", role)}
}

func InsufficientStock(field string, requested, available int) *Error {
	return &Error{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("insufficient stock: requested %d, available %d", requested, available),
		Fields:  map[string]string{field: fmt.Sprintf("only %d available", available)},
	}
}

func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Message: entity + " not found"}
}

func AlreadyInState(code, message string) *Error {
	return &Error{Kind: KindAlreadyInState, Code: code, Message: message}
}

func StaleState() *Error {
	return &Error{Kind: KindStaleState, Message: "order was modified concurrently, reload and retry"}
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
