package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeFile     ErrorType = "FILE"
	ErrTypeSchema   ErrorType = "SCHEMA"
	ErrTypeParsing  ErrorType = "PARSING"
	ErrTypeValue    ErrorType = "VALUE"
	ErrTypeJoin     ErrorType = "JOIN"
	ErrTypeQuantile ErrorType = "QUANTILE"
	ErrTypeReshape  ErrorType = "RESHAPE"
	ErrTypeStorage  ErrorType = "STORAGE"
	ErrTypeConfig   ErrorType = "CONFIG"
)

// Sentinels for errors.Is. An *AppError matches the sentinel of its type.
var (
	ErrFile     = &AppError{Type: ErrTypeFile}
	ErrSchema   = &AppError{Type: ErrTypeSchema}
	ErrParse    = &AppError{Type: ErrTypeParsing}
	ErrValue    = &AppError{Type: ErrTypeValue}
	ErrJoin     = &AppError{Type: ErrTypeJoin}
	ErrQuantile = &AppError{Type: ErrTypeQuantile}
	ErrReshape  = &AppError{Type: ErrTypeReshape}
	ErrStorage  = &AppError{Type: ErrTypeStorage}
	ErrConfig   = &AppError{Type: ErrTypeConfig}
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *AppError of the same type.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// TypeOf returns the ErrorType of the first *AppError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}

// IsRecoverable reports whether a dataset failure can be absorbed by the run:
// file and schema problems null the dataset instead of aborting.
func IsRecoverable(err error) bool {
	switch TypeOf(err) {
	case ErrTypeFile, ErrTypeSchema, ErrTypeReshape:
		return true
	default:
		return false
	}
}

// NewFileError creates a missing or unreadable input error
func NewFileError(path string, cause error) *AppError {
	return NewAppError(ErrTypeFile, fmt.Sprintf("cannot read %s", path), cause).
		WithContext("path", path)
}

// NewSchemaError creates an error for a column that is absent. The message
// enumerates the columns that are actually available.
func NewSchemaError(column string, available []string) *AppError {
	msg := fmt.Sprintf("column %q not found. Available columns: %s", column, strings.Join(available, ", "))
	return NewAppError(ErrTypeSchema, msg, nil).
		WithContext("column", column).
		WithContext("available", available)
}

// NewDuplicateColumnError creates an error for a column name given twice
func NewDuplicateColumnError(column string, columns []string) *AppError {
	msg := fmt.Sprintf("duplicate column %q in %s", column, strings.Join(columns, ", "))
	return NewAppError(ErrTypeSchema, msg, nil).
		WithContext("column", column)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewValueError creates an out-of-domain value error
func NewValueError(column string, value string, row int) *AppError {
	return NewAppError(ErrTypeValue, fmt.Sprintf("unexpected %s value %q at row %d", column, value, row), nil).
		WithContext("column", column).
		WithContext("value", value).
		WithContext("row", row)
}

// NewJoinError creates an error for a join that cannot proceed
func NewJoinError(dataset string, message string) *AppError {
	return NewAppError(ErrTypeJoin, fmt.Sprintf("dataset %s: %s", dataset, message), nil).
		WithContext("dataset", dataset)
}

// NewQuantileError creates an error for a binning that cannot be split
func NewQuantileError(message string) *AppError {
	return NewAppError(ErrTypeQuantile, message, nil)
}

// NewReshapeError wraps an unexpected structural fault during a reshape
func NewReshapeError(message string, cause error) *AppError {
	return NewAppError(ErrTypeReshape, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
