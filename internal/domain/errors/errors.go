package errors

import (
	"errors"
	"fmt"
)

// Error types for the dial-plan pipeline
type ErrorType string

const (
	ErrorTypeValidation      ErrorType = "validation"
	ErrorTypeMalformed       ErrorType = "malformed_record"
	ErrorTypeConflict        ErrorType = "conflict"
	ErrorTypeUnrepresentable ErrorType = "unrepresentable"
	ErrorTypeInternal        ErrorType = "internal"
	ErrorTypeExternal        ErrorType = "external"
)

// Process exit codes reported by the command surface
const (
	ExitOK              = 0
	ExitGeneric         = 1
	ExitUsage           = 2
	ExitMalformed       = 3
	ExitConflict        = 4
	ExitUnrepresentable = 5
	ExitExternal        = 6
)

// Error codes
const (
	CodeMalformedRecord         = "MALFORMED_RECORD"
	CodeConflictingBillingClass = "CONFLICTING_BILLING_CLASS"
	CodeUnrepresentablePattern  = "UNREPRESENTABLE_PATTERN"
)

// AppError represents a structured application error
type AppError struct {
	Type      ErrorType              `json:"type"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
	ExitCode  int                    `json:"exit_code"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Is reports a match on the error code so sentinel comparisons work through wrapping.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// Error constructors
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:     ErrorTypeValidation,
		Code:     code,
		Message:  message,
		ExitCode: ExitUsage,
	}
}

// RawTuple is the offending input echoed back in malformed-record errors.
type RawTuple struct {
	NPA          string `json:"npa"`
	NXX          string `json:"nxx"`
	BillingClass string `json:"billing_class"`
}

func (r RawTuple) String() string {
	return fmt.Sprintf("(npa=%q, nxx=%q, class=%q)", r.NPA, r.NXX, r.BillingClass)
}

func NewMalformedRecordError(raw RawTuple, reason string) *AppError {
	return &AppError{
		Type:     ErrorTypeMalformed,
		Code:     CodeMalformedRecord,
		Message:  fmt.Sprintf("malformed record %s: %s", raw, reason),
		ExitCode: ExitMalformed,
		Details: map[string]interface{}{
			"record": raw,
			"reason": reason,
		},
	}
}

// BillingConflict is one npa/nxx that the upstream source listed as both local and toll.
type BillingConflict struct {
	NPA     string   `json:"npa"`
	NXX     string   `json:"nxx"`
	Classes []string `json:"classes"`
}

func (c BillingConflict) String() string {
	return c.NPA + "/" + c.NXX
}

func NewConflictingBillingClassError(conflicts []BillingConflict) *AppError {
	msg := "conflicting billing class"
	if len(conflicts) > 0 {
		msg = fmt.Sprintf("conflicting billing class for %s", conflicts[0])
		if len(conflicts) > 1 {
			msg = fmt.Sprintf("%s and %d more", msg, len(conflicts)-1)
		}
	}
	return &AppError{
		Type:     ErrorTypeConflict,
		Code:     CodeConflictingBillingClass,
		Message:  msg,
		ExitCode: ExitConflict,
		Details:  map[string]interface{}{"conflicts": conflicts},
	}
}

// LeftoverSummary describes a code set the compressor refused to emit.
type LeftoverSummary struct {
	Codes       int      `json:"codes"`
	Patterns    int      `json:"patterns"`
	MaxPatterns int      `json:"max_patterns"`
	SampleCodes []string `json:"sample_codes"`
	TrieNodes   int      `json:"trie_nodes"`
}

func NewUnrepresentablePatternError(category string, summary LeftoverSummary) *AppError {
	return &AppError{
		Type: ErrorTypeUnrepresentable,
		Code: CodeUnrepresentablePattern,
		Message: fmt.Sprintf("%s: %d codes need %d patterns, limit is %d",
			category, summary.Codes, summary.Patterns, summary.MaxPatterns),
		ExitCode: ExitUnrepresentable,
		Details: map[string]interface{}{
			"category": category,
			"leftover": summary,
		},
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:     ErrorTypeInternal,
		Code:     "INTERNAL_ERROR",
		Message:  message,
		ExitCode: ExitGeneric,
	}
}

func NewExternalError(service, message string) *AppError {
	return &AppError{
		Type:      ErrorTypeExternal,
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("%s service error: %s", service, message),
		Retryable: true,
		ExitCode:  ExitExternal,
		Details:   map[string]interface{}{"service": service},
	}
}

// Sentinels for errors.Is checks
var (
	ErrMalformedRecord         = &AppError{Code: CodeMalformedRecord}
	ErrConflictingBillingClass = &AppError{Code: CodeConflictingBillingClass}
	ErrUnrepresentablePattern  = &AppError{Code: CodeUnrepresentablePattern}
)

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetExitCode extracts the process exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.ExitCode != 0 {
		return appErr.ExitCode
	}
	return ExitGeneric
}
