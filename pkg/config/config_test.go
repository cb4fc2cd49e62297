package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Port  int    `yaml:"port"`
	Extra string `yaml:"extra"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "from-env")
	path := writeConfig(t, "name: ${SAMPLE_NAME}\nport: 9000\n")

	cfg := sample{Extra: "default"}
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != (sample{Name: "from-env", Port: 9000, Extra: "default"}) {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeConfig(t, "port: 0\n")
	cfg := sample{}
	err := Load(path, &cfg)
	if err == nil || !strings.Contains(err.Error(), "config validation failed") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := writeConfig(t, "port: [unterminated\n")
	cfg := sample{Port: 1}
	if err := Load(path, &cfg); err == nil || !strings.Contains(err.Error(), "failed to parse") {
		t.Errorf("err = %v", err)
	}
}

func TestLoadOptional_MissingFile(t *testing.T) {
	cfg := sample{Port: 8001}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &cfg)
	if err != nil || found {
		t.Fatalf("LoadOptional = %v, %v", found, err)
	}
	if cfg.Port != 8001 {
		t.Errorf("defaults lost: %+v", cfg)
	}

	bad := sample{}
	if _, err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &bad); err == nil {
		t.Error("defaults should still be validated")
	}
}

func TestLoadOptional_PresentFile(t *testing.T) {
	path := writeConfig(t, "port: 1234\n")
	cfg := sample{Port: 8001}
	found, err := LoadOptional(path, &cfg)
	if err != nil || !found {
		t.Fatalf("LoadOptional = %v, %v", found, err)
	}
	if cfg.Port != 1234 {
		t.Errorf("port = %d", cfg.Port)
	}
}
