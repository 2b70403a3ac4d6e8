package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"slices"
)

// DefaultLogger writes structured records through log/slog.
// Warn and Error go to the same handler; the level filter is shared by all
// loggers derived with WithFields.
type DefaultLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
	fields Fields
}

// NewDefaultLogger creates a text logger on stderr at info level
func NewDefaultLogger() *DefaultLogger {
	return NewSlogLogger(os.Stderr, InfoLevel, false)
}

// NewSlogLogger creates a logger writing to w. When asJSON is set records are
// emitted as JSON lines instead of key=value text.
func NewSlogLogger(w io.Writer, level Level, asJSON bool) *DefaultLogger {
	lv := new(slog.LevelVar)
	lv.Set(toSlogLevel(level))

	opts := &slog.HandlerOptions{Level: lv}
	var h slog.Handler
	if asJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}

	return &DefaultLogger{
		logger: slog.New(h),
		level:  lv,
		fields: make(Fields),
	}
}

func toSlogLevel(l Level) slog.Level {
	switch l {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// attrs flattens fields into sorted slog key/value pairs so output is stable.
func (d *DefaultLogger) attrs(err error, fields ...Fields) []any {
	all := mergeFields(d.fields, fields...)
	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	args := make([]any, 0, 2*len(keys)+2)
	if err != nil {
		args = append(args, slog.String("error", err.Error()))
	}
	for _, k := range keys {
		args = append(args, slog.Any(k, all[k]))
	}
	return args
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.logger.Debug(msg, d.attrs(nil, fields...)...)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.logger.Info(msg, d.attrs(nil, fields...)...)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.logger.Warn(msg, d.attrs(nil, fields...)...)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.logger.Error(msg, d.attrs(err, fields...)...)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	return &DefaultLogger{
		logger: d.logger,
		level:  d.level,
		fields: mergeFields(d.fields, fields),
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	f := fieldsFromContext(ctx)
	if len(f) == 0 {
		return d
	}
	return d.WithFields(f)
}

func (d *DefaultLogger) SetLevel(level Level) {
	d.level.Set(toSlogLevel(level))
}
