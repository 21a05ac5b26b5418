// Package logging wraps github.com/charmbracelet/log for the main engine
// process.
package logging

import (
	"io"
	"os"
	"sort"

	charmlog "github.com/charmbracelet/log"
)

// Options configures a Logger at creation time.
type Options struct {
	Level     string
	Writer    io.Writer
	Component string
}

// Logger is stagekit's structured logger for the engine process.
type Logger struct {
	base *charmlog.Logger
}

// New creates a configured Logger.
func New(opts Options) *Logger {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	base := charmlog.NewWithOptions(writer, charmlog.Options{
		ReportTimestamp: true,
		Level:           parseLevel(opts.Level),
	})
	if opts.Component != "" {
		base = base.With("component", opts.Component)
	}
	return &Logger{base: base}
}

func parseLevel(level string) charmlog.Level {
	lvl, err := charmlog.ParseLevel(level)
	if err != nil {
		return charmlog.InfoLevel
	}
	return lvl
}

// With returns a derived logger that always carries the supplied fields.
func (l *Logger) With(fields map[string]any) *Logger {
	if l == nil || l.base == nil || len(fields) == 0 {
		return l
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return &Logger{base: l.base.With(args...)}
}

func (l *Logger) Info(msg string, args ...any)  { l.log(l.base.Info, msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.log(l.base.Debug, msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.log(l.base.Warn, msg, args...) }

// Error writes an error entry, including err as a structured field when set.
func (l *Logger) Error(err error, msg string, args ...any) {
	if l == nil || l.base == nil {
		return
	}
	if err != nil {
		args = append(args, "error", err)
	}
	l.base.Error(msg, args...)
}

func (l *Logger) log(fn func(interface{}, ...interface{}), msg string, args ...any) {
	if l == nil || l.base == nil || fn == nil {
		return
	}
	fn(msg, args...)
}
