package cmd

import (
	"fmt"
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Log output formats accepted by ConfigureLogging.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ConfigureLogging sets the process-wide logrus level, formatter and output.
// A nil writer keeps the current output.
func ConfigureLogging(level, format string, out io.Writer) error {
	parsed, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", LogFormatText:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case LogFormatJSON:
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	log.SetLevel(parsed)
	if out != nil {
		log.SetOutput(out)
	}
	return nil
}
