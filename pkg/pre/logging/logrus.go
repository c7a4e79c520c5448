package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sirupsen/logrus"
)

// NewLogrus returns a logrus logger writing text records to w that drops
// records below lvl.
func NewLogrus(w io.Writer, lvl slog.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	switch {
	case lvl >= slog.LevelError:
		l.SetLevel(logrus.ErrorLevel)
	case lvl >= slog.LevelWarn:
		l.SetLevel(logrus.WarnLevel)
	case lvl >= slog.LevelInfo:
		l.SetLevel(logrus.InfoLevel)
	default:
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// FromLogrus adapts a logrus logger. Key/value arguments become logrus
// fields; slog.Attr arguments keep their key.
func FromLogrus(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

type logrusLogger struct {
	entry *logrus.Entry
}

func (l *logrusLogger) Debug(ctx context.Context, msg string, args ...any) {
	l.with(ctx, args).Debug(msg)
}

func (l *logrusLogger) Info(ctx context.Context, msg string, args ...any) {
	l.with(ctx, args).Info(msg)
}

func (l *logrusLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.with(ctx, args).Warn(msg)
}

func (l *logrusLogger) Error(ctx context.Context, msg string, args ...any) {
	l.with(ctx, args).Error(msg)
}

func (l *logrusLogger) With(args ...any) Logger {
	return &logrusLogger{entry: l.entry.WithFields(fields(args))}
}

func (l *logrusLogger) with(ctx context.Context, args []any) *logrus.Entry {
	e := l.entry
	if ctx != nil {
		e = e.WithContext(ctx)
	}
	if len(args) == 0 {
		return e
	}
	return e.WithFields(fields(args))
}

// fields follows slog's argument rules: an slog.Attr stands alone, a string
// is a key followed by its value, and anything else is stored under
// "!BADKEY".
func fields(args []any) logrus.Fields {
	f := make(logrus.Fields, len(args)/2+1)
	for len(args) > 0 {
		switch a := args[0].(type) {
		case slog.Attr:
			f[a.Key] = a.Value.Any()
			args = args[1:]
		case string:
			if len(args) == 1 {
				f["!BADKEY"] = a
				args = nil
				continue
			}
			f[a] = args[1]
			args = args[2:]
		default:
			f["!BADKEY"] = fmt.Sprint(a)
			args = args[1:]
		}
	}
	return f
}
