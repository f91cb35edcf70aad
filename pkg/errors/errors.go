// Package errors defines the error taxonomy for the statement processing
// pipeline. Every failure carries a category (which pipeline concern broke),
// a specific code, optional context values and a user-facing suggestion.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile          ErrorCategory = "file"
	CategoryParse         ErrorCategory = "parse"
	CategoryCleaning      ErrorCategory = "cleaning"
	CategoryEnrichment    ErrorCategory = "enrichment"
	CategoryAggregation   ErrorCategory = "aggregation"
	CategoryPersistence   ErrorCategory = "persistence"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound      ErrorCode = "file_not_found"
	CodeFilePermission    ErrorCode = "file_permission"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeFileTooLarge      ErrorCode = "file_too_large"

	// Parse errors
	CodeParseFailure  ErrorCode = "parse_failure"
	CodeMissingColumn ErrorCode = "missing_column"
	CodeInvalidData   ErrorCode = "invalid_data"
	CodeEncodingError ErrorCode = "encoding_error"
	CodeEmptyFile     ErrorCode = "empty_file"

	// Cleaning errors
	CodeCleaningFailure ErrorCode = "cleaning_failure"
	CodeNoValidRows     ErrorCode = "no_valid_rows"

	// Enrichment errors (should be rare: enrichment degrades to UNKNOWN
	// instead of raising, so anything surfacing here is a defect)
	CodeEnrichmentFailure ErrorCode = "enrichment_failure"

	// Aggregation errors
	CodeAggregationFailure ErrorCode = "aggregation_failure"

	// Persistence errors
	CodeStorageFailure    ErrorCode = "storage_failure"
	CodeDuplicateConflict ErrorCode = "duplicate_conflict"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// PipelineError is the base error type for all application errors
type PipelineError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *PipelineError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryCleaning:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryEnrichment, CategoryAggregation, CategoryInternal:
		return 5
	case CategoryPersistence:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *PipelineError) WithSuggestion(suggestion string) *PipelineError {
	e.Suggestion = suggestion
	return e
}

// New creates a new PipelineError
func New(category ErrorCategory, code ErrorCode, message string) *PipelineError {
	return &PipelineError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with PipelineError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *PipelineError {
	if err == nil {
		return nil
	}

	return &PipelineError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// FileError creates a file-validation error
func FileError(code ErrorCode, name string, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", name)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", name)
		suggestion = "check file permissions and ensure you have read access"
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported file format: %s", name)
		suggestion = "upload a CSV, XLSX or XLS statement export"
	case CodeFileTooLarge:
		message = fmt.Sprintf("file exceeds the size limit: %s", name)
		suggestion = "split the statement into smaller date ranges and retry"
	default:
		message = fmt.Sprintf("file error: %s", name)
		suggestion = "check the file and try again"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	} else {
		result = New(CategoryFile, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_name", name)
}

// ParseError creates a parsing-related error
func ParseError(code ErrorCode, file string, detail string, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required columns in %s: %s", file, detail)
		suggestion = "export the statement with the standard column headers"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in %s: %s", file, detail)
		suggestion = "save the file in UTF-8 encoding and try again"
	case CodeEmptyFile:
		message = fmt.Sprintf("file %s contains no data rows", file)
		suggestion = "ensure the export includes at least one transaction"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in %s: %s", file, detail)
		suggestion = "correct the data format or remove the invalid entry"
	default:
		message = fmt.Sprintf("failed to parse %s: %s", file, detail)
		suggestion = "check the file format and data integrity"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("detail", detail)
}

// CleaningError creates a normalization-stage error
func CleaningError(code ErrorCode, detail string, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeNoValidRows:
		message = "no valid transactions remained after cleaning"
		suggestion = "check that the date and narration columns contain usable values"
	default:
		message = fmt.Sprintf("failed to clean statement data: %s", detail)
		suggestion = "check the amount and date columns for unexpected content"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryCleaning, code, message)
	} else {
		result = New(CategoryCleaning, code, message)
	}

	return result.WithSuggestion(suggestion).WithContext("detail", detail)
}

// EnrichmentError creates an enrichment-stage error. Enrichment is designed
// to degrade rather than fail, so these indicate a defect.
func EnrichmentError(operation string, err error) *PipelineError {
	message := fmt.Sprintf("unexpected enrichment failure during %s", operation)

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryEnrichment, CodeEnrichmentFailure, message)
	} else {
		result = New(CategoryEnrichment, CodeEnrichmentFailure, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// AggregationError creates an aggregation-stage error
func AggregationError(operation string, err error) *PipelineError {
	message := fmt.Sprintf("pattern aggregation failed during %s", operation)

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryAggregation, CodeAggregationFailure, message)
	} else {
		result = New(CategoryAggregation, CodeAggregationFailure, message)
	}

	return result.
		WithSuggestion("review the enriched transaction data for inconsistencies").
		WithContext("operation", operation)
}

// PersistenceError creates a storage-layer error
func PersistenceError(code ErrorCode, operation string, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeDuplicateConflict:
		message = fmt.Sprintf("constraint violation during %s", operation)
		suggestion = "the record may already exist; re-running the upload is safe"
	default:
		message = fmt.Sprintf("storage failure during %s", operation)
		suggestion = "check the database file is writable and not corrupted"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryPersistence, code, message)
	} else {
		result = New(CategoryPersistence, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *PipelineError {
	var message string
	var suggestion string

	switch code {
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting via flag, environment or config file"
	default:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	}

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(operation string, err error) *PipelineError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *PipelineError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// ErrorSummary provides a summary of multiple errors
type ErrorSummary struct {
	Total      int                   `json:"total"`
	ByCategory map[ErrorCategory]int `json:"by_category"`
	ByCode     map[ErrorCode]int     `json:"by_code"`
	Errors     []*PipelineError      `json:"errors"`
}

// NewErrorSummary creates a new error summary
func NewErrorSummary(errs []*PipelineError) *ErrorSummary {
	summary := &ErrorSummary{
		Total:      len(errs),
		ByCategory: make(map[ErrorCategory]int),
		ByCode:     make(map[ErrorCode]int),
		Errors:     errs,
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error returns a formatted error message for the summary
func (es *ErrorSummary) Error() string {
	if es.Total == 0 {
		return "no errors"
	}

	if es.Total == 1 {
		return es.Errors[0].Error()
	}

	var categories []string
	for category, count := range es.ByCategory {
		categories = append(categories, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", es.Total, strings.Join(categories, ", "))
}

// HasCategory checks if the summary contains errors of the given category
func (es *ErrorSummary) HasCategory(category ErrorCategory) bool {
	count, exists := es.ByCategory[category]
	return exists && count > 0
}

// Utility functions

// IsPipelineError checks if an error is a PipelineError
func IsPipelineError(err error) bool {
	_, ok := err.(*PipelineError)
	return ok
}

// AsPipelineError extracts a PipelineError from an error chain
func AsPipelineError(err error) (*PipelineError, bool) {
	var pipelineErr *PipelineError
	if errors.As(err, &pipelineErr) {
		return pipelineErr, true
	}
	return nil, false
}

// WrapIfNeeded wraps an error if it's not already a PipelineError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *PipelineError {
	if err == nil {
		return nil
	}

	if pipelineErr, ok := AsPipelineError(err); ok {
		return pipelineErr
	}

	return Wrap(err, category, code, message)
}
