package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = New("info")

// New builds a JSON logger with the field names the log pipeline expects.
func New(level string) *logrus.Logger {
	l := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.Level = lvl
	l.Formatter = &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "severity",
			logrus.FieldKeyMsg:   "message",
		},
	}
	l.Out = os.Stdout
	return l
}

// Logger returns the process logger.
func Logger() *logrus.Logger {
	return log
}

// SetLevel changes the process logger level; unknown levels are ignored.
func SetLevel(level string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
}
