package mylogger

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Logger is a thin wrapper over slog that carries the service name and the
// current action as structured attributes. It is passed by value; every
// chaining call returns a derived logger.
type Logger struct {
	sl *slog.Logger
}

// New creates a JSON logger writing to stdout. Level is one of
// DEBUG | INFO | WARN | ERROR.
func New(level string) (Logger, error) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO", "":
		lvl = slog.LevelInfo
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		return Logger{}, fmt.Errorf("unknown log level: %s", level)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	hostname, _ := os.Hostname()
	return Logger{sl: slog.New(handler).With("hostname", hostname)}, nil
}

// Action tags subsequent log lines with an action name, e.g.
// log.Action("order_created").Info("...").
func (l Logger) Action(action string) Logger {
	return Logger{sl: l.sl.With("action", action)}
}

func (l Logger) With(args ...any) Logger {
	return Logger{sl: l.sl.With(args...)}
}

func (l Logger) WithGroup(name string) Logger {
	return Logger{sl: l.sl.WithGroup(name)}
}

func (l Logger) Debug(msg string, args ...any) {
	l.sl.Debug(msg, args...)
}

func (l Logger) Info(msg string, args ...any) {
	l.sl.Info(msg, args...)
}

func (l Logger) Warn(msg string, args ...any) {
	l.sl.Warn(msg, args...)
}

func (l Logger) Error(msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	l.sl.Error(msg, args...)
}
