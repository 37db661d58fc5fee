package cmd

import (
	"bytes"
	"os"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestConfigureLoggingJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := ConfigureLogging("debug", LogFormatJSON, &buf); err != nil {
		t.Fatalf("configure logging: %v", err)
	}
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{})
		log.SetLevel(log.InfoLevel)
	})

	log.WithField("tx_id", "abc").Debug("committed")
	if !strings.Contains(buf.String(), `"tx_id":"abc"`) {
		t.Fatalf("expected json field in output, got %q", buf.String())
	}
}

func TestConfigureLoggingRejectsBadInput(t *testing.T) {
	if err := ConfigureLogging("loud", LogFormatText, nil); err == nil {
		t.Fatal("expected bad level error")
	}
	if err := ConfigureLogging("info", "xml", nil); err == nil {
		t.Fatal("expected bad format error")
	}
}
