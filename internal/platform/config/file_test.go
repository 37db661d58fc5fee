package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fileTestConfig struct {
	Addr  string `env:"OBJECTLEDGER_TEST_ADDR" envDefault:"127.0.0.1:1" yaml:"addr"`
	Level string `env:"OBJECTLEDGER_TEST_LEVEL" envDefault:"info" yaml:"level"`
}

func TestLoadFileOverlaysEnvDefaults(t *testing.T) {
	var cfg fileTestConfig
	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ledger.yaml")
	if err := os.WriteFile(path, []byte("addr: 0.0.0.0:9000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.Addr != "0.0.0.0:9000" {
		t.Fatalf("expected file addr, got %q", cfg.Addr)
	}
	if cfg.Level != "info" {
		t.Fatalf("expected env default level to survive, got %q", cfg.Level)
	}
}

func TestLoadFileEmptyPathIsNoop(t *testing.T) {
	cfg := fileTestConfig{Addr: "keep"}
	if err := LoadFile("  ", &cfg); err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.Addr != "keep" {
		t.Fatalf("expected unchanged config, got %q", cfg.Addr)
	}
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	var cfg fileTestConfig
	err := Decode(strings.NewReader("bogus: true\n"), &cfg)
	if err == nil {
		t.Fatal("expected unknown key error")
	}
	if !strings.Contains(err.Error(), "parse config file:") {
		t.Fatalf("expected parse prefix, got %v", err)
	}
}

func TestDecodeEmptyDocument(t *testing.T) {
	var cfg fileTestConfig
	if err := Decode(strings.NewReader(""), &cfg); err != nil {
		t.Fatalf("expected empty document to be accepted, got %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	var cfg fileTestConfig
	if err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Fatal("expected missing file error")
	}
}
