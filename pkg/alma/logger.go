package alma

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Swiss-Library-Service-Platform/almapiwrapper/internal/constants"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Critical(msg string, fields map[string]interface{})
}

// LevelCritical sits above slog.LevelError and marks process-ending failures.
const LevelCritical = slog.Level(12)

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	l *slog.Logger
}

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}

	return &SlogLogger{l: l}
}

func (s *SlogLogger) Debug(msg string, fields map[string]interface{}) {
	s.log(slog.LevelDebug, msg, fields)
}

func (s *SlogLogger) Info(msg string, fields map[string]interface{}) {
	s.log(slog.LevelInfo, msg, fields)
}

func (s *SlogLogger) Warn(msg string, fields map[string]interface{}) {
	s.log(slog.LevelWarn, msg, fields)
}

func (s *SlogLogger) Error(msg string, fields map[string]interface{}) {
	s.log(slog.LevelError, msg, fields)
}

func (s *SlogLogger) Critical(msg string, fields map[string]interface{}) {
	s.log(LevelCritical, msg, fields)
}

func (s *SlogLogger) log(level slog.Level, msg string, fields map[string]interface{}) {
	attrs := make([]slog.Attr, 0, len(fields))
	for key, value := range fields {
		attrs = append(attrs, slog.Any(key, value))
	}

	s.l.LogAttrs(context.Background(), level, msg, attrs...)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, map[string]interface{})    {}
func (NopLogger) Info(string, map[string]interface{})     {}
func (NopLogger) Warn(string, map[string]interface{})     {}
func (NopLogger) Error(string, map[string]interface{})    {}
func (NopLogger) Critical(string, map[string]interface{}) {}

// NewProcessLogger configures the log of a batch run: a text log written both
// to log/log_<name>.txt (log/log.txt when name is empty) and to stdout.
// The returned closer releases the log file.
func NewProcessLogger(dir, name string) (*SlogLogger, io.Closer, error) {
	if dir == "" {
		dir = "log"
	}

	err := os.MkdirAll(dir, constants.LogDirPerm)
	if err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	fileName := "log.txt"
	if name != "" {
		fileName = "log_" + name + ".txt"
	}

	file, err := os.OpenFile(filepath.Join(dir, fileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, constants.RecordsFilePerm)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := slog.NewTextHandler(io.MultiWriter(file, os.Stdout), &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.LevelKey {
				if level, ok := attr.Value.Any().(slog.Level); ok && level >= LevelCritical {
					return slog.String(slog.LevelKey, "CRITICAL")
				}
			}

			return attr
		},
	})

	return NewSlogLogger(slog.New(handler)), file, nil
}
