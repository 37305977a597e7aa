// Package logging configures the process-wide logger. Structured, leveled
// logging matches the shape kubescape-node-agent uses for its managers,
// implemented here with logrus. Everything goes to stderr so stdout stays
// reserved for recordings and rendered output.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return l
}

// SetDebug switches the logger to debug level, surfacing recoverable parse
// errors and other low-level detail per spec.md §7.
func SetDebug(debug bool) {
	if debug {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
}

// L returns the process-wide logger.
func L() *logrus.Logger {
	return log
}
