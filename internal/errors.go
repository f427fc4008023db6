package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeBusinessRule ErrorType = "BUSINESS_RULE_VIOLATION"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidOrderID   ErrorCode = "INVALID_ORDER_ID"
	ErrCodeInvalidProgramID ErrorCode = "INVALID_PROGRAM_ID"
	ErrCodeInvalidBody      ErrorCode = "INVALID_REQUEST_BODY"

	ErrCodeOrderNotFound      ErrorCode = "ORDER_NOT_FOUND"
	ErrCodeEnrollmentNotFound ErrorCode = "ENROLLMENT_NOT_FOUND"
	ErrCodeProgramNotFound    ErrorCode = "PROGRAM_NOT_FOUND"
	ErrCodeLearnerNotFound    ErrorCode = "LEARNER_NOT_FOUND"
	ErrCodeOrderForbidden     ErrorCode = "ORDER_FORBIDDEN"
	ErrCodeAlreadyEntitled    ErrorCode = "ALREADY_ENTITLED"
	ErrCodeNoPrice            ErrorCode = "PROGRAM_HAS_NO_PRICE"
	ErrCodeProgramInactive    ErrorCode = "PROGRAM_INACTIVE"

	ErrCodeMissingToken    ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidToken    ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired    ErrorCode = "TOKEN_EXPIRED"
	ErrCodeLearnerInactive ErrorCode = "LEARNER_INACTIVE"
	ErrCodeBadCredentials  ErrorCode = "INVALID_CREDENTIALS"

	ErrCodeMissingSignature   ErrorCode = "MISSING_SIGNATURE_HEADERS"
	ErrCodeInvalidSignature   ErrorCode = "INVALID_SIGNATURE"
	ErrCodeGatewayUnavailable ErrorCode = "GATEWAY_UNAVAILABLE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
		messages := make([]string, len(validationErrors.Errors))
		for i, err := range validationErrors.Errors {
			messages[i] = err.Message
		}
		return strings.Join(messages, "; ")
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on error code so wrapped copies of the sentinels below compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// WithCause returns a copy of the error carrying cause. Sentinels stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewUnprocessableError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeBusinessRule,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

func NewServiceUnavailableError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusServiceUnavailable,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrOrderNotFound      = NewNotFoundError("Order not found", ErrCodeOrderNotFound)
	ErrEnrollmentNotFound = NewNotFoundError("Enrollment not found", ErrCodeEnrollmentNotFound)
	ErrProgramNotFound    = NewNotFoundError("Program not found", ErrCodeProgramNotFound)
	ErrLearnerNotFound    = NewNotFoundError("Learner not found", ErrCodeLearnerNotFound)
	ErrOrderForbidden     = NewForbiddenError("Order belongs to another learner", ErrCodeOrderForbidden)
	ErrAlreadyEntitled    = NewConflictError("Learner already has access to this program", ErrCodeAlreadyEntitled)
	ErrNoPrice            = NewUnprocessableError("Program has no price configured", ErrCodeNoPrice)
	ErrProgramInactive    = NewUnprocessableError("Program is not open for enrollment", ErrCodeProgramInactive)
	ErrGatewayUnavailable = NewServiceUnavailableError("Payment gateway is unavailable, please retry", ErrCodeGatewayUnavailable)

	ErrMissingToken    = NewUnauthorizedError("Authorization header required", ErrCodeMissingToken)
	ErrInvalidToken    = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired    = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrLearnerInactive = NewForbiddenError("Learner account is inactive", ErrCodeLearnerInactive)
	ErrBadCredentials  = NewUnauthorizedError("Invalid email or password", ErrCodeBadCredentials)

	ErrMissingSignature = NewValidationError("Missing webhook signature headers", ErrCodeMissingSignature)
	ErrInvalidSignature = NewUnauthorizedError("Invalid webhook signature", ErrCodeInvalidSignature)
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
