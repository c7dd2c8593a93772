package hostfuncs

// ImportError is a structured failure of a host import. Imports return no
// value to the guest, so these errors are reported on the host side only.
type ImportError struct {
	// Kind is a machine-readable error type identifier (e.g., "VALIDATION_ERROR", "INTERNAL_ERROR").
	Kind string

	// Message is a human-readable error description.
	Message string
}

func (e *ImportError) Error() string {
	return e.Kind + ": " + e.Message
}

// NewValidationError creates an error for bad input (e.g., a malformed payload).
func NewValidationError(message string) *ImportError {
	return &ImportError{Kind: "VALIDATION_ERROR", Message: message}
}

// NewNotFoundError creates an error for unknown imports.
func NewNotFoundError(name string) *ImportError {
	return &ImportError{Kind: "NOT_FOUND", Message: "unknown host import: " + name}
}

// NewPanicError creates an error for recovered panics.
func NewPanicError(panicValue any) *ImportError {
	var msg string
	if err, ok := panicValue.(error); ok {
		msg = err.Error()
	} else if s, ok := panicValue.(string); ok {
		msg = s
	} else {
		msg = "panic recovered"
	}
	return &ImportError{Kind: "INTERNAL_ERROR", Message: "panic: " + msg}
}
