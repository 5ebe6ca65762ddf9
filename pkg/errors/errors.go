package errors

import (
	"errors"
	"fmt"
)

// Kind classifies an application error so callers and the HTTP layer can
// react without string matching.
type Kind int

const (
	KindValidation Kind = iota + 1000
	KindInvalidTime
	KindSlotUnavailable
	KindNotFound
	KindPaymentVerification
	KindForbidden
	KindRetryable
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindInvalidTime:
		return "invalid_time"
	case KindSlotUnavailable:
		return "slot_unavailable"
	case KindNotFound:
		return "not_found"
	case KindPaymentVerification:
		return "payment_verification_failed"
	case KindForbidden:
		return "forbidden"
	case KindRetryable:
		return "retryable_error"
	default:
		return "internal_error"
	}
}

// AppError represents an application error
type AppError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error constructors

func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func InvalidTime(message string) *AppError {
	return &AppError{Kind: KindInvalidTime, Message: message}
}

func SlotUnavailable(reason string) *AppError {
	return &AppError{Kind: KindSlotUnavailable, Message: reason}
}

func NotFound(resource string) *AppError {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

func PaymentVerificationFailed(message string, err error) *AppError {
	return &AppError{Kind: KindPaymentVerification, Message: message, Err: err}
}

func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func Retryable(message string, err error) *AppError {
	return &AppError{Kind: KindRetryable, Message: message, Err: err}
}

func Internal(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf extracts the Kind from err, walking the wrap chain. Unclassified
// errors report KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
