package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName   = "tiffin"
	envPrefix = "TIFFIN"
)

// Config is the complete client configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Storage StorageConfig `mapstructure:"storage"`
	Worker  WorkerConfig  `mapstructure:"worker"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type APIConfig struct {
	// BaseURL is the backend root, e.g. http://localhost:8000
	BaseURL string `mapstructure:"base_url"`
	// Timeout bounds a single request. 0 disables the client timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	// FilePath is where the session document lives.
	FilePath string `mapstructure:"file_path"`
}

type WorkerConfig struct {
	// MaxInFlight caps concurrent backend requests.
	MaxInFlight int `mapstructure:"max_in_flight"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// File receives JSON log lines. "-" means stderr.
	File string `mapstructure:"file"`
}

func Default() *Config {
	dir := ConfigDir()
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000",
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			FilePath: filepath.Join(dir, "user_data.json"),
		},
		Worker: WorkerConfig{
			MaxInFlight: 4,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(dir, "tiffin.log"),
		},
	}
}

// SetDefaults registers every key on v so that env overrides and Unmarshal
// see it even without a config file.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("api.base_url", defaults.API.BaseURL)
	v.SetDefault("api.timeout", defaults.API.Timeout.String())
	v.SetDefault("storage.file_path", defaults.Storage.FilePath)
	v.SetDefault("worker.max_in_flight", defaults.Worker.MaxInFlight)
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
}

// NewViper builds a viper instance with defaults, environment bindings and,
// when present, the config file. cfgFile overrides the search path; a missing
// file in the search path is not an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	// TIFFIN_API_BASE_URL for api.base_url
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api.base_url", envPrefix+"_API_BASE_URL", "BACKEND_BASE_URL"); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load decodes and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.Storage.FilePath = expandHome(cfg.Storage.FilePath)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errs
	}
	return &cfg, nil
}

// LoadConfig reads cfgFile (or the default search path when empty) together
// with the environment.
func LoadConfig(cfgFile string) (*Config, error) {
	v, err := NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	return Load(v)
}

// ConfigDir returns the directory holding config.yaml and the session file.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, ".config", appName)
}

func expandHome(path string) string {
	rest, ok := strings.CutPrefix(path, "~/")
	if !ok {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, rest)
}
