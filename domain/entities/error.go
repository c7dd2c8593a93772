package entities

import "strings"

// ErrorDetail is the structured form of an error, as the CLI prints it.
//
// Type is one of "plugin", "abi", "wire", "script", "load", "config" or
// "internal".
type ErrorDetail struct {
	Type       string       `yaml:"type"`
	Message    string       `yaml:"message"`
	Code       string       `yaml:"code,omitempty"`
	IsNotFound bool         `yaml:"not_found,omitempty"`
	Wrapped    *ErrorDetail `yaml:"cause,omitempty"`
}

// NewErrorDetail returns an ErrorDetail of the given type.
func NewErrorDetail(typ, message string) *ErrorDetail {
	return &ErrorDetail{Type: typ, Message: message}
}

// WithCode sets Code and returns e.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// Error renders "type: message [code]", followed by the wrapped detail.
// The internal type is left out.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	if e.Type != "" && e.Type != "internal" {
		sb.WriteString(e.Type)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	if e.Code != "" {
		sb.WriteString(" [" + e.Code + "]")
	}
	if e.Wrapped != nil {
		sb.WriteString(": " + e.Wrapped.Error())
	}
	return sb.String()
}
