// Package obs sets up the structured logging shared by every
// rendezvous process.
package obs

import (
	"os"

	"github.com/sirupsen/logrus"
	easy "github.com/t-tomalak/logrus-easy-formatter"
)

// NewLogger returns a logrus logger with the bridge's standard
// timestamped, level-tagged line format, and a component field
// pre-attached so every log line identifies its process.
func NewLogger(component, level string) *logrus.Entry {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.000",
		LogFormat:       "[%lvl%] %time% [%component%] %msg%\n",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	return log.WithField("component", component)
}
