// Package errors provides the standardized error model shared by the HTTP
// surface and the workflow worker.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidQuery           ErrorCode = "INVALID_QUERY"
	ErrCodeCatalogUnavailable     ErrorCode = "CATALOG_UNAVAILABLE"
	ErrCodeNoCandidates           ErrorCode = "NO_CANDIDATES"
	ErrCodeUpstreamServiceError   ErrorCode = "UPSTREAM_SERVICE_ERROR"
	ErrCodeUpstreamRateLimited    ErrorCode = "UPSTREAM_RATE_LIMITED"
	ErrCodeMalformedUpstreamReply ErrorCode = "MALFORMED_UPSTREAM_REPLY"
	ErrCodeLLMTimeout             ErrorCode = "LLM_TIMEOUT"
	ErrCodeConfigInvalid          ErrorCode = "CONFIG_INVALID"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewInvalidQueryError is returned for empty or unusable user input.
func NewInvalidQueryError(details string) *StandardError {
	return newError(ErrCodeInvalidQuery, "Query is empty or invalid", details, false)
}

// NewCatalogUnavailableError is returned when no catalog snapshot can be served.
func NewCatalogUnavailableError(err error) *StandardError {
	return newError(ErrCodeCatalogUnavailable, "Transmission catalog unavailable", detailsOf(err), true)
}

// NewNoCandidatesError describes a lookup that matched nothing.
func NewNoCandidatesError(query string) *StandardError {
	return newError(ErrCodeNoCandidates, "No catalog record matched the query", fmt.Sprintf("query: %s", query), false)
}

func NewUpstreamServiceError(err error) *StandardError {
	return newError(ErrCodeUpstreamServiceError, "Text-completion service failed", detailsOf(err), true)
}

func NewUpstreamRateLimitedError(err error) *StandardError {
	return newError(ErrCodeUpstreamRateLimited, "Text-completion service is rate limiting", detailsOf(err), true)
}

func NewMalformedUpstreamReplyError(err error) *StandardError {
	return newError(ErrCodeMalformedUpstreamReply, "Text-completion reply could not be used", detailsOf(err), true)
}

func NewLLMTimeoutError() *StandardError {
	return newError(ErrCodeLLMTimeout, "Text-completion request timed out", "", true)
}

// NewConfigInvalidError is raised at startup; it is never retried.
func NewConfigInvalidError(details string) *StandardError {
	return newError(ErrCodeConfigInvalid, "Invalid configuration", details, false)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", detailsOf(err), false)
}

// BPMNErrorMapping maps internal codes to the error codes modelled in BPMN.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInvalidQuery:           "INVALID_QUERY",
	ErrCodeCatalogUnavailable:     "CATALOG_UNAVAILABLE",
	ErrCodeNoCandidates:           "NO_CANDIDATES",
	ErrCodeUpstreamServiceError:   "UPSTREAM_SERVICE_ERROR",
	ErrCodeUpstreamRateLimited:    "UPSTREAM_RATE_LIMITED",
	ErrCodeMalformedUpstreamReply: "MALFORMED_UPSTREAM_REPLY",
	ErrCodeLLMTimeout:             "LLM_TIMEOUT",
}

// GetRetryCount returns how many retries a job failing with code should get.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogUnavailable,
		ErrCodeUpstreamServiceError:
		return 3
	case ErrCodeUpstreamRateLimited,
		ErrCodeMalformedUpstreamReply:
		return 2
	case ErrCodeLLMTimeout:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logging and dashboards.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CATALOG"):
		return "CATALOG"
	case strings.Contains(codeStr, "UPSTREAM") || strings.Contains(codeStr, "LLM"):
		return "AI"
	case strings.Contains(codeStr, "CONFIG"):
		return "CONFIG"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "CANDIDATES"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
