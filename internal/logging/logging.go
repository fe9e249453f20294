// Package logging configures the logrus logger shared by the CLI, the shell
// and the MCP server.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New builds a logger writing to out (stderr when nil). format "json"
// selects the JSON formatter; anything else gets the text formatter. An
// unparseable level falls back to info and is reported once.
func New(level, format string, out io.Writer) *logrus.Logger {
	log := logrus.New()
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", level).Warn("invalid log level, using info")
		return log
	}
	log.SetLevel(lvl)
	return log
}

// WithComponent tags entries with the subsystem that produced them.
func WithComponent(log logrus.FieldLogger, component string) *logrus.Entry {
	return log.WithField("component", component)
}

// WithIngestion tags entries belonging to one ingestion attempt.
func WithIngestion(log logrus.FieldLogger, id, source string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"ingestion_id": id,
		"source":       source,
	})
}
