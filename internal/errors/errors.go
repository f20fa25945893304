package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorType classifies an error for callers and for HTTP mapping
type ErrorType uint

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeAuthentication
	ErrorTypeAuthorization
	ErrorTypeNotFound
	ErrorTypeInvalidState
	ErrorTypeInsufficientFunds
	ErrorTypeConflict
	ErrorTypeInternal
	ErrorTypeRateLimit
)

// Error carries a type, a human-readable message and optional context
type Error struct {
	Type       ErrorType
	Message    string
	Details    map[string]interface{}
	Err        error
	StatusCode int
	ErrorCode  string
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on error type so callers can test taxonomy membership
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

func NewError(errType ErrorType, message string, err error) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Err:        err,
		StatusCode: errorTypeToStatusCode(errType),
		ErrorCode:  errorTypeToCode(errType),
		Details:    make(map[string]interface{}),
	}
}

func (e *Error) WithDetails(details map[string]interface{}) *Error {
	e.Details = details
	return e
}

// Common error constructors
func NewValidationError(message string, err error) *Error {
	return NewError(ErrorTypeValidation, message, err)
}

func NewAuthenticationError(message string, err error) *Error {
	return NewError(ErrorTypeAuthentication, message, err)
}

func NewAuthorizationError(message string, err error) *Error {
	return NewError(ErrorTypeAuthorization, message, err)
}

func NewNotFoundError(message string, err error) *Error {
	return NewError(ErrorTypeNotFound, message, err)
}

func NewInvalidStateError(message string, err error) *Error {
	return NewError(ErrorTypeInvalidState, message, err)
}

func NewInsufficientFundsError(message string, err error) *Error {
	return NewError(ErrorTypeInsufficientFunds, message, err)
}

func NewConflictError(message string, err error) *Error {
	return NewError(ErrorTypeConflict, message, err)
}

func NewInternalError(message string, err error) *Error {
	return NewError(ErrorTypeInternal, message, err)
}

func NewRateLimitError(message string, err error) *Error {
	return NewError(ErrorTypeRateLimit, message, err)
}

func errorTypeToStatusCode(errType ErrorType) int {
	switch errType {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeAuthorization:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeInvalidState:
		return http.StatusConflict
	case ErrorTypeInsufficientFunds:
		return http.StatusUnprocessableEntity
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func errorTypeToCode(errType ErrorType) string {
	switch errType {
	case ErrorTypeValidation:
		return "VALIDATION_ERROR"
	case ErrorTypeAuthentication:
		return "AUTHENTICATION_ERROR"
	case ErrorTypeAuthorization:
		return "AUTHORIZATION_ERROR"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	case ErrorTypeInvalidState:
		return "INVALID_STATE"
	case ErrorTypeInsufficientFunds:
		return "INSUFFICIENT_FUNDS"
	case ErrorTypeConflict:
		return "CONFLICT"
	case ErrorTypeRateLimit:
		return "RATE_LIMIT_EXCEEDED"
	case ErrorTypeInternal:
		return "INTERNAL_ERROR"
	default:
		return "UNKNOWN_ERROR"
	}
}

// Domain-specific error constructors
func NewPortfolioNotFoundError(userID string) *Error {
	return NewNotFoundError(
		"User portfolio not found",
		nil,
	).WithDetails(map[string]interface{}{
		"user_id": userID,
	})
}

func NewTransactionNotFoundError(transactionID string) *Error {
	return NewNotFoundError(
		"Transaction not found",
		nil,
	).WithDetails(map[string]interface{}{
		"transaction_id": transactionID,
	})
}

func NewTransactionNotPendingError(transactionID string) *Error {
	return NewInvalidStateError(
		"Only pending transactions can be updated",
		nil,
	).WithDetails(map[string]interface{}{
		"transaction_id": transactionID,
	})
}

func NewInsufficientPrincipalError(requested float64) *Error {
	return NewInsufficientFundsError(
		"Insufficient principal amount",
		nil,
	).WithDetails(map[string]interface{}{
		"requested": requested,
	})
}

func NewInsufficientInterestError(requested float64) *Error {
	return NewInsufficientFundsError(
		"Insufficient interest amount",
		nil,
	).WithDetails(map[string]interface{}{
		"requested": requested,
	})
}

func NewAmountOutOfBoundsError(min, max float64) *Error {
	return NewValidationError(
		fmt.Sprintf("Amount must be between %v and %v", min, max),
		nil,
	).WithDetails(map[string]interface{}{
		"minimum_amount": min,
		"maximum_amount": max,
	})
}

func NewDatabaseError(operation string, err error) *Error {
	return NewInternalError(
		fmt.Sprintf("Database operation failed: %s", operation),
		err,
	).WithDetails(map[string]interface{}{
		"operation": operation,
	})
}

func NewInvalidCredentialsError() *Error {
	return NewAuthenticationError("Invalid credentials", nil)
}

func NewInvalidTokenError() *Error {
	return NewAuthenticationError("Invalid token", nil)
}

// ErrorResponse is the JSON shape handlers send for failed requests
type ErrorResponse struct {
	Status    string                 `json:"status"`
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func NewErrorResponse(err *Error, requestID string) *ErrorResponse {
	return &ErrorResponse{
		Status:    "error",
		ErrorCode: err.ErrorCode,
		Message:   err.Message,
		Details:   err.Details,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
	}
}
