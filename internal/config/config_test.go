package config

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/runtimelink/internal/errors"
	"github.com/vango-dev/runtimelink/pkg/payload"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func linkError(t *testing.T, err error) *errors.LinkError {
	t.Helper()
	var le *errors.LinkError
	if !stderrors.As(err, &le) {
		t.Fatalf("error %v is not a *LinkError", err)
	}
	return le
}

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Runtime.Address != "192.168.0.0" {
		t.Errorf("Runtime.Address = %q, want %q", cfg.Runtime.Address, "192.168.0.0")
	}
	if cfg.Runtime.DefaultPort != 5000 {
		t.Errorf("Runtime.DefaultPort = %d, want 5000", cfg.Runtime.DefaultPort)
	}
	if cfg.Status.Listen != DefaultListen {
		t.Errorf("Status.Listen = %q, want %q", cfg.Status.Listen, DefaultListen)
	}
	if cfg.Record.Enabled() {
		t.Error("recording should be off by default")
	}
	if cfg.Runtime.KeepAlive.Enabled {
		t.Error("keep-alive should be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDurations(t *testing.T) {
	cfg := New()

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"poll", cfg.PollInterval(), 5 * time.Second},
		{"handshake", cfg.HandshakeTimeout(), 10 * time.Second},
		{"write", cfg.WriteTimeout(), 5 * time.Second},
		{"keepalive", cfg.KeepAliveInterval(), 5 * time.Second},
		{"flush", cfg.FlushInterval(), time.Minute},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}

	cfg.Runtime.PollInterval = "soon"
	if got := cfg.PollInterval(); got != 0 {
		t.Errorf("PollInterval() with bad value = %v, want 0", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, `{
  "runtime": {
    "address": "10.0.0.7",
    "pollInterval": "2s",
    "keepAlive": {"enabled": true, "mode": "auto", "interval": "250ms"}
  },
  "record": {"bucket": "sessions"},
  "log": {"level": "debug", "format": "json"}
}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Runtime.Address != "10.0.0.7" {
		t.Errorf("Address = %q", cfg.Runtime.Address)
	}
	if cfg.PollInterval() != 2*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval())
	}
	// Unset fields keep their defaults.
	if cfg.Runtime.DefaultPort != 5000 {
		t.Errorf("DefaultPort = %d, want 5000", cfg.Runtime.DefaultPort)
	}
	if cfg.WriteTimeout() != 5*time.Second {
		t.Errorf("WriteTimeout = %v", cfg.WriteTimeout())
	}
	if !cfg.Runtime.KeepAlive.Enabled || cfg.KeepAliveMode() != payload.ModeAuto {
		t.Errorf("KeepAlive = %+v", cfg.Runtime.KeepAlive)
	}
	if cfg.KeepAliveInterval() != 250*time.Millisecond {
		t.Errorf("KeepAliveInterval = %v", cfg.KeepAliveInterval())
	}
	if !cfg.Record.Enabled() || cfg.Record.Prefix != DefaultRecordPrefix {
		t.Errorf("Record = %+v", cfg.Record)
	}
	if cfg.Path() != filepath.Join(dir, ConfigFileName) {
		t.Errorf("Path() = %q", cfg.Path())
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error")
	}
	if le := linkError(t, err); le.Code != "E041" {
		t.Errorf("Code = %q, want E041", le.Code)
	}
}

func TestLoadFileSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "{\n  \"runtime\": {\n    \"address\": 10.0.0.7\n  }\n}\n")

	_, err := Load(dir)
	le := linkError(t, err)
	if le.Code != "E040" {
		t.Errorf("Code = %q, want E040", le.Code)
	}
	if le.Location == nil || le.Location.Line != 3 {
		t.Errorf("Location = %v, want line 3", le.Location)
	}
}

func TestLoadFileTypeError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "{\n  \"runtime\": {\n    \"defaultPort\": \"5000\"\n  }\n}\n")

	_, err := Load(dir)
	le := linkError(t, err)
	if le.Code != "E040" {
		t.Errorf("Code = %q, want E040", le.Code)
	}
	if le.Location == nil || le.Location.Line != 3 {
		t.Errorf("Location = %v, want line 3", le.Location)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad address", func(c *Config) { c.Runtime.Address = "ftp://robot" }, "E001"},
		{"port zero", func(c *Config) { c.Runtime.DefaultPort = 0 }, "E043"},
		{"port too large", func(c *Config) { c.Runtime.DefaultPort = 70000 }, "E043"},
		{"bad duration", func(c *Config) { c.Runtime.PollInterval = "five" }, "E042"},
		{"negative duration", func(c *Config) { c.Runtime.WriteTimeout = "-1s" }, "E042"},
		{"zero flush", func(c *Config) { c.Record.FlushInterval = "0s" }, "E042"},
		{"bad keepalive mode", func(c *Config) { c.Runtime.KeepAlive.Mode = "sprint" }, "E043"},
		{"bad listen", func(c *Config) { c.Status.Listen = "8080" }, "E043"},
		{"bucket and dir", func(c *Config) { c.Record.Bucket, c.Record.Dir = "b", "/tmp/rec" }, "E081"},
		{"negative buffer", func(c *Config) { c.Record.MaxBuffered = -1 }, "E043"},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }, "E043"},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "E043"},
		{"warn level", func(c *Config) { c.Log.Level = "warn" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want %s", tt.wantCode)
			}
			if le := linkError(t, err); le.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", le.Code, tt.wantCode)
			}
		})
	}
}

func TestValidateLocatesField(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "{\n  \"runtime\": {\n    \"address\": \"10.0.0.7\",\n    \"pollInterval\": \"five\"\n  }\n}\n")

	_, err := Load(dir)
	le := linkError(t, err)
	if le.Code != "E042" {
		t.Fatalf("Code = %q, want E042", le.Code)
	}
	if le.Location == nil || le.Location.Line != 4 {
		t.Fatalf("Location = %v, want line 4", le.Location)
	}
	if le.Location.Column != 5 {
		t.Errorf("Column = %d, want 5", le.Location.Column)
	}
	if len(le.Context) == 0 {
		t.Error("Context should include the file lines")
	}
}

func TestSaveTo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)

	cfg := New()
	cfg.Runtime.Address = "robot.local"
	cfg.Record.Dir = "/var/lib/runtimelink"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	if cfg.Path() != path {
		t.Errorf("Path() = %q, want %q", cfg.Path(), path)
	}
	if !Exists(dir) {
		t.Error("Exists() = false after SaveTo")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Error("saved file should end with a newline")
	}
	if !strings.Contains(string(data), `"pollInterval": "5s"`) {
		t.Errorf("durations should be saved as strings:\n%s", data)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Runtime.Address != "robot.local" || loaded.Record.Dir != "/var/lib/runtimelink" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestSaveToBadPath(t *testing.T) {
	err := New().SaveTo(filepath.Join(t.TempDir(), "missing", ConfigFileName))
	if le := linkError(t, err); le.Code != "E044" {
		t.Errorf("Code = %q, want E044", le.Code)
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		format    string
		wantDebug bool
		wantJSON  bool
	}{
		{"text info", "info", "text", false, false},
		{"json debug", "debug", "json", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			cfg.Log.Level, cfg.Log.Format = tt.level, tt.format

			var buf bytes.Buffer
			log := cfg.Logger(&buf)
			log.Debug("debug line")
			log.Info("info line", "k", "v")

			out := buf.String()
			if strings.Contains(out, "debug line") != tt.wantDebug {
				t.Errorf("debug line present = %v, want %v\n%s", !tt.wantDebug, tt.wantDebug, out)
			}
			if strings.HasPrefix(out, "{") != tt.wantJSON {
				t.Errorf("json output = %v, want %v\n%s", !tt.wantJSON, tt.wantJSON, out)
			}
		})
	}
}
