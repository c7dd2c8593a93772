// Package errors provides domain-specific error types for the runtime.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/gal-dev/galrt/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

var (
	// ErrHostClosed is returned by calls into a Host after Close.
	ErrHostClosed = stdErrors.New("host is closed")

	// ErrUnknownCommand is returned when no Text plugin registered a command.
	ErrUnknownCommand = stdErrors.New("unknown text command")

	// ErrNoGame is returned by record access when no game is configured.
	ErrNoGame = stdErrors.New("no game configured")
)

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    "internal",
	}
}

// FunctionNotFoundError is returned when a plugin exports neither name nor
// name_async.
type FunctionNotFoundError struct {
	Plugin   string
	Function string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("plugin %s: cannot find function %s", e.Plugin, e.Function)
}

// ToErrorDetail implements DetailedError.
func (e *FunctionNotFoundError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "plugin", Code: e.Function, IsNotFound: true}
}

// MissingExportError is returned when a module lacks an export the ABI
// requires.
type MissingExportError struct {
	Plugin string
	Export string
}

func (e *MissingExportError) Error() string {
	return fmt.Sprintf("plugin %s: missing required export %s", e.Plugin, e.Export)
}

// ToErrorDetail implements DetailedError.
func (e *MissingExportError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "abi", Code: e.Export, IsNotFound: true}
}

// MemoryFaultError reports an access outside guest linear memory.
type MemoryFaultError struct {
	Op     string // "read" or "write"
	Offset uint32
	Length uint32
	Size   uint32 // memory size at the time of the access
}

func (e *MemoryFaultError) Error() string {
	return fmt.Sprintf("memory %s out of range: offset %d length %d (memory size %d)",
		e.Op, e.Offset, e.Length, e.Size)
}

// ToErrorDetail implements DetailedError.
func (e *MemoryFaultError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "abi", Code: "memory_fault"}
}

// WireFormatError represents a wire format encoding/decoding error.
type WireFormatError struct {
	Err       error
	Operation string
	Type      string
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("wire format %s failed for %s: %v", e.Operation, e.Type, e.Err)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *WireFormatError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "wire", Code: e.Operation}
}

// GuestCallError wraps a failure raised while executing a guest export,
// such as a trap.
type GuestCallError struct {
	Err      error
	Plugin   string
	Function string
}

func (e *GuestCallError) Error() string {
	return fmt.Sprintf("plugin %s: call %s: %v", e.Plugin, e.Function, e.Err)
}

func (e *GuestCallError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *GuestCallError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "plugin", Code: e.Function}
}

// UnsupportedOperationError is returned by the script evaluator for
// operator and assignment combinations that have no defined meaning.
type UnsupportedOperationError struct {
	Op     string
	Reason string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation %s: %s", e.Op, e.Reason)
}

// ToErrorDetail implements DetailedError.
func (e *UnsupportedOperationError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "script", Code: e.Op}
}

// LoadError reports a plugin that could not be loaded. Any LoadError aborts
// the whole registry load.
type LoadError struct {
	Err    error
	Plugin string
	Path   string
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("load plugin %s (%s): %v", e.Plugin, e.Path, e.Err)
	}
	return fmt.Sprintf("load plugin %s: %v", e.Plugin, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *LoadError) ToErrorDetail() *entities.ErrorDetail {
	detail := &entities.ErrorDetail{Message: e.Error(), Type: "load", Code: e.Plugin}
	if inner := ToErrorDetail(e.Err); inner != nil && inner.Type != "internal" {
		detail.Wrapped = inner
	}
	return detail
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: "config", Code: e.Field}
}
