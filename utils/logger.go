package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger provides leveled, printf-style logging throughout the application.
// Every line carries a timestamp and level, so the same output doubles as the
// append-only attempt log.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a Logger writing to the given outputs, or stdout when
// none are given.
func NewLogger(outputs ...io.Writer) *Logger {
	l := logrus.New()
	switch len(outputs) {
	case 0:
		l.SetOutput(os.Stdout)
	case 1:
		l.SetOutput(outputs[0])
	default:
		l.SetOutput(io.MultiWriter(outputs...))
	}
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})
	l.SetLevel(logrus.InfoLevel)
	return &Logger{entry: logrus.NewEntry(l)}
}

// SetLevel parses a level name (debug, info, warn, error). Unknown names keep
// the current level and return false.
func (l *Logger) SetLevel(name string) bool {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(name))
	if err != nil {
		return false
	}
	l.entry.Logger.SetLevel(lvl)
	return true
}

// With returns a child logger that adds key=value to every line.
func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Info(format string, args ...any) {
	l.entry.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...any) {
	l.entry.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...any) {
	l.entry.Errorf(format, args...)
}

func (l *Logger) Debug(format string, args ...any) {
	l.entry.Debugf(format, args...)
}
