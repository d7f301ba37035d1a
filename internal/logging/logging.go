// Package logging configures the process-wide logger.
package logging

import "github.com/sirupsen/logrus"

// New returns a logger at the given level. An unknown level falls back to
// info with a warning.
func New(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.Warnf("invalid log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}
