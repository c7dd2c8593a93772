package entities

// LogLevel is a guest log level. Lower is more severe.
type LogLevel uint8

const (
	LogLevelError LogLevel = iota + 1
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
	LogLevelTrace
)

// LogRecord is a structured log entry emitted by a guest through the
// log.__log import.
type LogRecord struct {
	Level      LogLevel `cbor:"level"`
	Target     string   `cbor:"target"`
	Msg        string   `cbor:"msg"`
	ModulePath *string  `cbor:"module_path,omitempty"`
	File       *string  `cbor:"file,omitempty"`
	Line       *uint32  `cbor:"line,omitempty"`
}
