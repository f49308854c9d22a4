package errors

import (
	"fmt"
	"strings"
)

// Error types for different categories of failures
const (
	// Input/File errors
	ErrScriptRead   = "SCRIPT_READ_ERROR"
	ErrFileNotFound = "FILE_NOT_FOUND"

	// Structural errors
	ErrUnclosedFunction = "UNCLOSED_FUNCTION"

	// Annotation errors
	ErrAnnotationSyntax = "ANNOTATION_SYNTAX_ERROR"
	ErrUnknownType      = "UNKNOWN_ARGUMENT_TYPE"
	ErrInvalidAlias     = "INVALID_ALIAS"
	ErrGroupConflict    = "GROUP_CONFLICT"
	ErrChoicesConflict  = "CHOICES_CONFLICT"

	// Macro errors
	ErrMacroSyntax        = "MACRO_SYNTAX_ERROR"
	ErrInvalidSafetyMacro = "INVALID_SAFETY_MACRO"
	ErrInvalidSignal      = "INVALID_SIGNAL"
	ErrNoMacroTarget      = "NO_MACRO_TARGET"

	// Argument errors
	ErrMissingArgument = "MISSING_ARGUMENT"
	ErrInvalidArgument = "INVALID_ARGUMENT"

	// System errors
	ErrExecution = "EXECUTION_ERROR"
)

// Error represents a structured error with a type code and optional cause
type Error struct {
	Type    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows error unwrapping
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error
func New(errorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errorType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error
func Wrap(errorType, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Message: message,
		Cause:   cause,
	}
}

// ScriptError represents an error tied to a specific script line. Line
// numbers are 1-based; a zero line means the location is unknown.
type ScriptError struct {
	Type    string // error type code, see constants above
	Line    int    // 1-based line number where the error occurred
	Column  int    // column position within the line (0-based)
	Message string // the error message
	Context string // the line of text where the error occurred
}

// Error formats the script error with visual context when available
func (e *ScriptError) Error() string {
	prefix := e.Message
	if e.Line > 0 {
		prefix = fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	if e.Context == "" {
		return prefix
	}

	// Arrow pointing at the error position within the offending line
	pointer := strings.Repeat(" ", e.Column) + "^"
	return fmt.Sprintf("%s\n%s\n%s", prefix, e.Context, pointer)
}

// NewScriptError creates a ScriptError without context
func NewScriptError(errorType string, line int, format string, args ...interface{}) *ScriptError {
	return &ScriptError{
		Type:    errorType,
		Line:    line,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewDetailedScriptError creates a ScriptError with the offending line as context
func NewDetailedScriptError(errorType string, line, column int, context, format string, args ...interface{}) *ScriptError {
	return &ScriptError{
		Type:    errorType,
		Line:    line,
		Column:  column,
		Context: context,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsType checks if an error carries a specific type code
func IsType(err error, errorType string) bool {
	switch e := err.(type) {
	case *Error:
		return e.Type == errorType
	case *ScriptError:
		return e.Type == errorType
	}
	return false
}
