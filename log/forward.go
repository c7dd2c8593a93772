package log

import (
	"context"
	"log/slog"

	"github.com/gal-dev/galrt/domain/entities"
)

// Level maps a guest log level onto slog. Unknown levels are treated as
// info.
func Level(l entities.LogLevel) slog.Level {
	switch l {
	case entities.LogLevelError:
		return slog.LevelError
	case entities.LogLevelWarn:
		return slog.LevelWarn
	case entities.LogLevelDebug:
		return slog.LevelDebug
	case entities.LogLevelTrace:
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// Forward emits a guest record through logger. The record's target and
// optional location become attributes.
func Forward(ctx context.Context, logger *slog.Logger, rec entities.LogRecord) {
	level := Level(rec.Level)
	if !logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 4)
	if rec.Target != "" {
		attrs = append(attrs, slog.String("target", rec.Target))
	}
	if rec.ModulePath != nil {
		attrs = append(attrs, slog.String("module_path", *rec.ModulePath))
	}
	if rec.File != nil {
		attrs = append(attrs, slog.String("file", *rec.File))
	}
	if rec.Line != nil {
		attrs = append(attrs, slog.Uint64("line", uint64(*rec.Line)))
	}
	logger.LogAttrs(ctx, level, rec.Msg, attrs...)
}
