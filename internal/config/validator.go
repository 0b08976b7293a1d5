package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var ErrInvalidConfig = errors.New("invalid config")

// ValidationError is one rejected setting.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap lets callers match any validation failure with errors.Is.
func (e ValidationErrors) Unwrap() error {
	return ErrInvalidConfig
}

func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate returns every problem found; nil means the config is usable.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	u, err := url.Parse(c.API.BaseURL)
	switch {
	case err != nil:
		errs = append(errs, ValidationError{"api.base_url", c.API.BaseURL, err.Error()})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, ValidationError{"api.base_url", c.API.BaseURL, "must be an http or https URL"})
	case u.Host == "":
		errs = append(errs, ValidationError{"api.base_url", c.API.BaseURL, "must include a host"})
	}

	if c.API.Timeout < 0 {
		errs = append(errs, ValidationError{"api.timeout", c.API.Timeout, "must not be negative"})
	}
	if strings.TrimSpace(c.Storage.FilePath) == "" {
		errs = append(errs, ValidationError{"storage.file_path", c.Storage.FilePath, "must be set"})
	}
	if c.Worker.MaxInFlight < 1 {
		errs = append(errs, ValidationError{"worker.max_in_flight", c.Worker.MaxInFlight, "must be at least 1"})
	}
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errs = append(errs, ValidationError{"logging.level", c.Logging.Level,
			"must be one of " + strings.Join(ValidLogLevels(), ", ")})
	}
	return errs
}
