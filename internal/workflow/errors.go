package workflow

import "fmt"

// Kind is a machine-readable error category, kept on the error for logging
// and for mapping to HTTP statuses at the API layer.
type Kind string

const (
	KindInvalidTransition Kind = "invalid_transition"
	KindPermissionDenied  Kind = "permission_denied"
	KindMissingCompletion Kind = "missing_completion"
	KindConflict          Kind = "conflict"
)

// Error is a workflow evaluation failure. No state changes when one is returned.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func invalidTransition(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf(format, args...)}
}

func permissionDenied(format string, args ...interface{}) *Error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}
