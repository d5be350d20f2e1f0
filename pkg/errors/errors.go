// Package errors provides structured error handling for the application.
// It defines AppError type with error codes for consistent API responses
// and for mapping failures to the pipeline's error taxonomy.
package errors

import (
	"errors"
	"fmt"
)

// Error codes organized by category
const (
	// General errors (1000-1099)
	CodeSuccess       = 0
	CodeUnknown       = 1000
	CodeInvalidParams = 1001
	CodeNotFound      = 1002
	CodeRateLimited   = 1003

	// Video source errors (1100-1199)
	CodeUnprobeableSource = 1100
	CodeVideoDownload     = 1101
	CodeAudioDownload     = 1102
	CodeUnsupportedURL    = 1103

	// Transcription errors (1200-1299)
	CodeTranscriptionUnavailable = 1200
	CodeTranscriptionTimeout     = 1201

	// Language model errors (1300-1399)
	CodeModelUnavailable  = 1300
	CodeMalformedResponse = 1301
	CodeLLMQuotaExceeded  = 1302

	// Quality control errors (1400-1499)
	CodeQCUnrecoverable = 1400

	// Storage errors (1500-1599)
	CodeDBError        = 1500
	CodeFileNotFound   = 1501
	CodeFileWriteError = 1502

	// Render errors (1600-1699)
	CodeEncodeError     = 1600
	CodeThumbnailFailed = 1601
	CodeSubtitleFailed  = 1602
)

// AppError represents a structured application error
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Cause   error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code int, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WrapWithDetail wraps an error with additional detail
func WrapWithDetail(code int, message string, detail string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Detail:  detail,
		Cause:   cause,
	}
}

// Is checks if the target error is an AppError with the specified code
func Is(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode extracts error code from error, returns CodeUnknown if not AppError
func GetCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetMessage extracts message from error
func GetMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// Transient reports whether the error is worth retrying at the call site.
// Malformed responses are deliberately excluded: retrying them wastes quota
// and the stages have a local fallback instead.
func Transient(err error) bool {
	switch GetCode(err) {
	case CodeTranscriptionUnavailable, CodeTranscriptionTimeout,
		CodeModelUnavailable, CodeRateLimited:
		return true
	}
	return false
}

// Predefined common errors
var (
	ErrInvalidParams = New(CodeInvalidParams, "Invalid parameters")
	ErrNotFound      = New(CodeNotFound, "Resource not found")

	// Video source
	ErrUnprobeableSource = New(CodeUnprobeableSource, "Unprobeable source")
	ErrVideoDownload     = New(CodeVideoDownload, "Video download failed")
	ErrAudioDownload     = New(CodeAudioDownload, "Audio download failed")

	// Transcription
	ErrTranscriptionUnavailable = New(CodeTranscriptionUnavailable, "Transcription unavailable")

	// Language model
	ErrModelUnavailable  = New(CodeModelUnavailable, "Language model unavailable")
	ErrMalformedResponse = New(CodeMalformedResponse, "Malformed model response")

	// Quality control
	ErrQCUnrecoverable = New(CodeQCUnrecoverable, "No valid recut within bounds")

	// Storage
	ErrDBError      = New(CodeDBError, "Database error")
	ErrFileNotFound = New(CodeFileNotFound, "File not found")

	// Render
	ErrEncodeError = New(CodeEncodeError, "Encode failed")
)
