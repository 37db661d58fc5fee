package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile overlays YAML values from path onto target. Keys absent from the
// file keep whatever target already holds, so env defaults stay in effect.
// An empty path is a no-op.
func LoadFile(path string, target any) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return Decode(bytes.NewReader(data), target)
}

// Decode overlays YAML from r onto target. Unknown keys are rejected.
func Decode(r io.Reader, target any) error {
	if target == nil {
		return errors.New("config target is required")
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
