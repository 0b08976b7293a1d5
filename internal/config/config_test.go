package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// isolate points the config dir at a temp dir and clears overrides that may
// leak in from the developer's shell.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{"BACKEND_BASE_URL", "TIFFIN_API_BASE_URL", "TIFFIN_API_TIMEOUT",
		"TIFFIN_STORAGE_FILE_PATH", "TIFFIN_WORKER_MAX_IN_FLIGHT", "TIFFIN_LOGGING_LEVEL", "TIFFIN_LOGGING_FILE"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return filepath.Join(dir, "tiffin")
}

func TestDefault(t *testing.T) {
	cfgDir := isolate(t)
	cfg := Default()

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://localhost:8000")
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if want := filepath.Join(cfgDir, "user_data.json"); cfg.Storage.FilePath != want {
		t.Errorf("Storage.FilePath = %q, want %q", cfg.Storage.FilePath, want)
	}
	if cfg.Worker.MaxInFlight != 4 {
		t.Errorf("Worker.MaxInFlight = %d, want 4", cfg.Worker.MaxInFlight)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default().Validate() = %v, want none", errs)
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
		if got := ConfigDir(); got != "/tmp/xdg/tiffin" {
			t.Errorf("ConfigDir() = %q, want /tmp/xdg/tiffin", got)
		}
	})
	t.Run("home", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}
		if got, want := ConfigDir(), filepath.Join(home, ".config", "tiffin"); got != want {
			t.Errorf("ConfigDir() = %q, want %q", got, want)
		}
	})
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if *cfg != *Default() {
		t.Errorf("LoadConfig() = %+v, want %+v", *cfg, *Default())
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, cfg *Config)
	}{
		{
			name: "prefixed base url",
			env:  map[string]string{"TIFFIN_API_BASE_URL": "https://tiffin.example.com"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.API.BaseURL != "https://tiffin.example.com" {
					t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
				}
			},
		},
		{
			name: "legacy base url",
			env:  map[string]string{"BACKEND_BASE_URL": "http://10.0.2.2:8000"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.API.BaseURL != "http://10.0.2.2:8000" {
					t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
				}
			},
		},
		{
			name: "prefixed wins over legacy",
			env: map[string]string{
				"TIFFIN_API_BASE_URL": "https://a.example.com",
				"BACKEND_BASE_URL":    "https://b.example.com",
			},
			check: func(t *testing.T, cfg *Config) {
				if cfg.API.BaseURL != "https://a.example.com" {
					t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
				}
			},
		},
		{
			name: "timeout and workers",
			env:  map[string]string{"TIFFIN_API_TIMEOUT": "5s", "TIFFIN_WORKER_MAX_IN_FLIGHT": "2"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.API.Timeout != 5*time.Second {
					t.Errorf("API.Timeout = %v, want 5s", cfg.API.Timeout)
				}
				if cfg.Worker.MaxInFlight != 2 {
					t.Errorf("Worker.MaxInFlight = %d, want 2", cfg.Worker.MaxInFlight)
				}
			},
		},
		{
			name: "zero timeout",
			env:  map[string]string{"TIFFIN_API_TIMEOUT": "0s"},
			check: func(t *testing.T, cfg *Config) {
				if cfg.API.Timeout != 0 {
					t.Errorf("API.Timeout = %v, want 0", cfg.API.Timeout)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig("")
			if err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadConfig_File(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	doc := `api:
  base_url: https://tiffin.example.com/
  timeout: 10s
storage:
  file_path: ~/sessions/user.json
logging:
  level: debug
  file: "-"
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.API.BaseURL != "https://tiffin.example.com/" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 10*time.Second {
		t.Errorf("API.Timeout = %v, want 10s", cfg.API.Timeout)
	}
	if strings.HasPrefix(cfg.Storage.FilePath, "~") || !strings.HasSuffix(cfg.Storage.FilePath, filepath.Join("sessions", "user.json")) {
		t.Errorf("Storage.FilePath = %q, want home-expanded path", cfg.Storage.FilePath)
	}
	if cfg.Logging.File != "-" || cfg.Logging.Level != "debug" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.Worker.MaxInFlight != 4 {
		t.Errorf("Worker.MaxInFlight = %d, want default 4", cfg.Worker.MaxInFlight)
	}
}

func TestLoadConfig_MissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("LoadConfig() error = nil for a missing --config file")
	}
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	isolate(t)
	t.Setenv("TIFFIN_LOGGING_LEVEL", "chatty")
	_, err := LoadConfig("")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("LoadConfig() error = %v, want ErrInvalidConfig", err)
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("error %q does not name logging.level", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative url", func(c *Config) { c.API.BaseURL = "localhost:8000" }, "api.base_url"},
		{"ftp url", func(c *Config) { c.API.BaseURL = "ftp://example.com" }, "api.base_url"},
		{"no host", func(c *Config) { c.API.BaseURL = "http://" }, "api.base_url"},
		{"negative timeout", func(c *Config) { c.API.Timeout = -time.Second }, "api.timeout"},
		{"empty storage", func(c *Config) { c.Storage.FilePath = " " }, "storage.file_path"},
		{"no workers", func(c *Config) { c.Worker.MaxInFlight = 0 }, "worker.max_in_flight"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if len(errs) != 1 {
				t.Fatalf("Validate() = %v, want exactly one error", errs)
			}
			if errs[0].Field != tt.field {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.field)
			}
		})
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "a", Value: 1, Message: "bad"},
		{Field: "b", Value: 2, Message: "worse"},
	}
	want := "2 validation errors:\n  1. a: bad (got: 1)\n  2. b: worse (got: 2)"
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(errs, ErrInvalidConfig) {
		t.Error("errors.Is(ValidationErrors, ErrInvalidConfig) = false")
	}
}
