package server

import (
	"strings"

	colorable "github.com/mattn/go-colorable"
	"github.com/nsyszr/msgbroker/config"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func configureLogging(c *config.Config) error {
	level := log.InfoLevel
	if c.LogLevel != "" {
		l, err := log.ParseLevel(c.LogLevel)
		if err != nil {
			return errors.Wrap(err, "invalid LOG_LEVEL")
		}
		level = l
	}
	log.SetLevel(level)

	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
		log.SetOutput(colorable.NewColorableStdout())
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
		log.SetOutput(colorable.NewNonColorable(colorable.NewColorableStdout()))
	default:
		return errors.Errorf("unknown LOG_FORMAT '%s'", c.LogFormat)
	}
	return nil
}
