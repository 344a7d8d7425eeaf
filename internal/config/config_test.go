package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://localhost:8000" || cfg.Timeout != DefaultTimeout || cfg.WatchInterval != DefaultWatchInterval {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("base_url: http://camera.local:8000\ntimeout: 5s\n"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BaseURL != "http://camera.local:8000" || cfg.Timeout != 5*time.Second {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.WatchInterval != DefaultWatchInterval || cfg.LogLevel != "info" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"relative_url": "base_url: camera.local\n",
		"ftp_url":      "base_url: ftp://camera.local\n",
		"zero_timeout": "timeout: 0s\n",
		"fast_watch":   "watch_interval: 100ms\n",
		"bad_level":    "log_level: chatty\n",
		"bad_yaml":     "base_url: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(body), 0600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := Default()
	want.BaseURL = "https://camera.example"
	want.DownloadDir = t.TempDir()

	if err := Write(path, want); err != nil {
		t.Fatalf("Write: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "base_url: https://camera.example") {
		t.Fatalf("unexpected file content:\n%s", data)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != want {
		t.Fatalf("Load = %+v, want %+v", got, want)
	}
}
