package payment

import (
	"errors"
	"fmt"
)

var (
	ErrPaymentFailed = errors.New("payment: failed")
	ErrNotFound      = errors.New("payment: transaction not found")
)

// Code is the machine-readable reason of a payment failure.
type Code string

const (
	CodeInvalidAmount        Code = "INVALID_AMOUNT"
	CodeInvalidCurrency      Code = "INVALID_CURRENCY"
	CodeInvalidCardData      Code = "INVALID_CARD_DATA"
	CodeInvalidAccount       Code = "INVALID_ACCOUNT"
	CodeInvalidTransactionID Code = "INVALID_TRANSACTION_ID"
	CodeTransactionMismatch  Code = "TRANSACTION_MISMATCH"
	CodeInvalidState         Code = "INVALID_STATE"
	CodeBankRejected         Code = "BANK_REJECTED"
	CodeVerificationError    Code = "VERIFICATION_ERROR"
	CodeProcessingError      Code = "PROCESSING_ERROR"
	CodeConfirmationError    Code = "CONFIRMATION_ERROR"
)

// FailedError is returned by every rejected step of the state machine. By the
// time the caller sees it, the transaction state already reflects the failure.
type FailedError struct {
	TransactionID string
	Method        string
	Amount        float64
	Code          Code
	Field         string
	Reason        string
	Err           error
}

func (e *FailedError) Error() string {
	msg := fmt.Sprintf("payment: %s failed [%s]", e.Method, e.Code)
	if e.TransactionID != "" {
		msg += " transaction " + e.TransactionID
	}
	if e.Field != "" {
		msg += " field " + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FailedError) Is(target error) bool { return target == ErrPaymentFailed }

func (e *FailedError) Unwrap() error { return e.Err }

// Violation is a credential or input problem found before a transaction starts.
type Violation struct {
	Code   Code
	Field  string
	Reason string
}
