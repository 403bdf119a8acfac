package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents different types of errors that can occur during an optimization run
type ErrorCategory string

const (
	// Fatal to the triggering call, surfaced to the caller
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryDecode        ErrorCategory = "DECODE"

	// Recovered inside the search loop: the candidate is discarded
	ErrorCategoryEvaluation    ErrorCategory = "EVALUATION"
	ErrorCategoryInvalidResult ErrorCategory = "INVALID_RESULT"

	ErrorCategoryCancelled ErrorCategory = "CANCELLED"
)

// OptimizerError represents a categorized error with context
type OptimizerError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *OptimizerError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *OptimizerError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether this error must abort the call that raised it
func (e *OptimizerError) IsFatal() bool {
	return e.Category == ErrorCategoryConfiguration ||
		e.Category == ErrorCategoryDecode ||
		e.Category == ErrorCategoryCancelled
}

// IsRecoverable returns whether the search loop may discard the candidate and continue
func (e *OptimizerError) IsRecoverable() bool {
	return e.Category == ErrorCategoryEvaluation || e.Category == ErrorCategoryInvalidResult
}

// NewOptimizerError creates a new categorized error
func NewOptimizerError(category ErrorCategory, component, operation, message string) *OptimizerError {
	return &OptimizerError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with category and component context
func WrapError(err error, category ErrorCategory, component, operation string) *OptimizerError {
	if err == nil {
		return nil
	}

	return &OptimizerError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *OptimizerError) WithContext(key string, value interface{}) *OptimizerError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// CategoryOf returns the category of the first OptimizerError in err's chain, or "" if there is none
func CategoryOf(err error) ErrorCategory {
	var optErr *OptimizerError
	if stderrors.As(err, &optErr) {
		return optErr.Category
	}
	return ""
}

// HasCategory reports whether err carries the given category anywhere in its chain
func HasCategory(err error, category ErrorCategory) bool {
	for err != nil {
		var optErr *OptimizerError
		if !stderrors.As(err, &optErr) {
			return false
		}
		if optErr.Category == category {
			return true
		}
		err = optErr.Underlying
	}
	return false
}

// Common error constructors
func NewConfigurationError(component, operation, message string) *OptimizerError {
	return NewOptimizerError(ErrorCategoryConfiguration, component, operation, message)
}

func NewDecodeError(component, operation, message string) *OptimizerError {
	return NewOptimizerError(ErrorCategoryDecode, component, operation, message)
}

func NewEvaluationError(component, operation string, err error) *OptimizerError {
	return WrapError(err, ErrorCategoryEvaluation, component, operation)
}

func NewInvalidResultError(component, operation, message string) *OptimizerError {
	return NewOptimizerError(ErrorCategoryInvalidResult, component, operation, message)
}

func NewCancelledError(component, operation string, err error) *OptimizerError {
	return WrapError(err, ErrorCategoryCancelled, component, operation)
}

// RecoveryAction is what the search loop does with an error
type RecoveryAction string

const (
	RecoveryActionSkip RecoveryAction = "SKIP"
	RecoveryActionStop RecoveryAction = "STOP"
)

// GetRecoveryAction suggests a recovery action based on error category
func (e *OptimizerError) GetRecoveryAction() RecoveryAction {
	if e.IsRecoverable() {
		return RecoveryActionSkip
	}
	return RecoveryActionStop
}

// RecoveryActionFor maps any error onto a recovery action. Uncategorized errors stop the run.
func RecoveryActionFor(err error) RecoveryAction {
	var optErr *OptimizerError
	if stderrors.As(err, &optErr) {
		return optErr.GetRecoveryAction()
	}
	return RecoveryActionStop
}

// ErrorStats tracks recovered error statistics
type ErrorStats struct {
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*OptimizerError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*OptimizerError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *OptimizerError) {
	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// Merge folds another tracker's counts into this one
func (es *ErrorStats) Merge(other *ErrorStats) {
	if other == nil {
		return
	}
	es.TotalErrors += other.TotalErrors
	for cat, n := range other.ErrorsByCategory {
		es.ErrorsByCategory[cat] += n
	}
	for _, err := range other.RecentErrors {
		es.RecentErrors = append(es.RecentErrors, err)
		if len(es.RecentErrors) > es.MaxRecentErrors {
			es.RecentErrors = es.RecentErrors[1:]
		}
	}
}

// GetErrorRate returns the share of recorded errors in a specific category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}
