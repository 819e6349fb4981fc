package logging

import (
	"github.com/sirupsen/logrus"
)

// Setup returns a logger at the given level with full timestamps.
func Setup(level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Nop returns an entry that discards everything below panic level. Used as
// the default logger for components that accept an optional *logrus.Entry.
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
