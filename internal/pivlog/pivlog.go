// Package pivlog is the structured logging sink the protocol engine logs
// into. It never owns the logger's configuration; callers inject one.
package pivlog

import "github.com/sirupsen/logrus"

// Logger is the structured logging sink consumed by the rest of the
// module. New and Discard return implementations backed by logrus.
type Logger interface {
	Debugf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

type entry struct {
	*logrus.Entry
}

func (e entry) WithField(key string, value interface{}) Logger {
	return entry{e.Entry.WithField(key, value)}
}

// New wraps a *logrus.Logger as a Logger. A nil l selects a fresh logrus
// logger at Warn level on logrus's default output; use Discard for silence.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.New()
		l.SetLevel(logrus.WarnLevel)
	}
	return entry{logrus.NewEntry(l)}
}

// Discard returns a Logger that drops everything, for callers that have no
// logging sink to wire in.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(discardWriter{})
	return New(l)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
