package workflows

import (
	"fmt"
)

// Error severity levels for workflow errors
type ErrorSeverity string

const (
	// ErrorSeverityCritical indicates the workflow must fail
	ErrorSeverityCritical ErrorSeverity = "critical"
	// ErrorSeverityHigh indicates a major issue but workflow can continue
	ErrorSeverityHigh ErrorSeverity = "high"
	// ErrorSeverityLow indicates a minor issue that doesn't affect main functionality
	ErrorSeverityLow ErrorSeverity = "low"
)

// WorkflowError represents a structured error in a workflow
type WorkflowError struct {
	Operation string        // The operation that failed (e.g., "fetch_alerts", "open_pull_request")
	Severity  ErrorSeverity // How severe the error is
	Err       error         // The underlying error
	Context   string        // Additional context about the error
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s failed: %s (%s)", e.Operation, e.Err.Error(), e.Context)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Err.Error())
}

// Unwrap allows errors.Is and errors.As to work with WorkflowError
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// NewWorkflowError creates a new workflow error with context
func NewWorkflowError(operation string, severity ErrorSeverity, err error, context string) *WorkflowError {
	return &WorkflowError{
		Operation: operation,
		Severity:  severity,
		Err:       err,
		Context:   context,
	}
}

// WrapActivityError wraps an activity error with operation context.
// Use this when an activity fails to provide consistent error messages.
func WrapActivityError(operation string, err error) error {
	return fmt.Errorf("%s: %w", operation, err)
}

// FormatErrorForResult formats an error for inclusion in an outcome's
// error field. This creates a human-readable message for end users.
func FormatErrorForResult(operation string, err error) string {
	return fmt.Sprintf("%s: %v", operation, err)
}

// Severity mapping for the remediation saga:
//
// CRITICAL (fail the stage, short-circuit):
//   - Stage A produced no branch, or the agent activity exhausted its
//     retries. The outcome is failure and stages B/C never run.
//
// HIGH (record, downgrade to partial):
//   - Stage B failed after a successful remediation. The branch exists
//     but is not under review; the outcome is partial with the error
//     recorded.
//
// LOW (record, keep status):
//   - Stage C failed. The pull request is open, only its tracking
//     ticket is missing; the ticket error is recorded on the outcome
//     and the status stays success.
