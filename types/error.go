package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a unified error code across the service.
type ErrorCode string

// Turn error codes
const (
	ErrUserInputEmpty          ErrorCode = "USER_INPUT_EMPTY"
	ErrProviderUnavailable     ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrProviderRateLimited     ErrorCode = "PROVIDER_RATE_LIMITED"
	ErrProviderInvalidResponse ErrorCode = "PROVIDER_INVALID_RESPONSE"
	ErrSynthesisFailed         ErrorCode = "SYNTHESIS_FAILED"
	ErrStoreUnavailable        ErrorCode = "STORE_UNAVAILABLE"
)

// Catalog / request error codes
const (
	ErrAgentNotFound    ErrorCode = "AGENT_NOT_FOUND"
	ErrSessionNotFound  ErrorCode = "SESSION_NOT_FOUND"
	ErrArtifactNotFound ErrorCode = "ARTIFACT_NOT_FOUND"
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrRateLimited      ErrorCode = "RATE_LIMITED"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// AsError 沿错误链查找 *Error
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsErrorCode reports whether any *Error in err's chain carries code.
func IsErrorCode(err error, code ErrorCode) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// =============================================================================
// 常用错误构造
// =============================================================================

// NewUserInputEmptyError 空文本或未检测到语音
func NewUserInputEmptyError(message string) *Error {
	return NewError(ErrUserInputEmpty, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewProviderUnavailableError 上游不可达、超时或 5xx
func NewProviderUnavailableError(provider, message string) *Error {
	return NewError(ErrProviderUnavailable, message).
		WithHTTPStatus(http.StatusServiceUnavailable).
		WithRetryable(true).
		WithProvider(provider)
}

// NewProviderRateLimitedError 上游限流
func NewProviderRateLimitedError(provider, message string) *Error {
	return NewError(ErrProviderRateLimited, message).
		WithHTTPStatus(http.StatusTooManyRequests).
		WithRetryable(true).
		WithProvider(provider)
}

// NewProviderInvalidResponseError 上游返回无法解析或为空
func NewProviderInvalidResponseError(provider, message string) *Error {
	return NewError(ErrProviderInvalidResponse, message).
		WithHTTPStatus(http.StatusBadGateway).
		WithRetryable(true).
		WithProvider(provider)
}

// NewSynthesisFailedError 语音合成失败，只在内部使用
func NewSynthesisFailedError(provider, message string) *Error {
	return NewError(ErrSynthesisFailed, message).
		WithHTTPStatus(http.StatusInternalServerError).
		WithProvider(provider)
}

// NewStoreUnavailableError 存储层不可用
func NewStoreUnavailableError(message string, cause error) *Error {
	return NewError(ErrStoreUnavailable, message).
		WithHTTPStatus(http.StatusInternalServerError).
		WithCause(cause)
}

// NewInvalidRequestError 请求参数错误
func NewInvalidRequestError(message string) *Error {
	return NewError(ErrInvalidRequest, message).WithHTTPStatus(http.StatusBadRequest)
}

// NewNotFoundError 返回 agent / session 不存在错误
func NewNotFoundError(code ErrorCode, message string) *Error {
	return NewError(code, message).WithHTTPStatus(http.StatusNotFound)
}
