package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := c.validateAlignment(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.OutputDir == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateTranslate() error {
	switch c.Translate.Service {
	case "openrouter", "mistral", "wordbyword":
	default:
		return fmt.Errorf("translate.service: unsupported value %q", c.Translate.Service)
	}
	if c.Translate.Service != "wordbyword" && strings.TrimSpace(c.Translate.Model) == "" {
		return errors.New("translate.model must be set for LLM translation services")
	}
	return nil
}

func (c *Config) validateAlignment() error {
	if c.Alignment.Workers < 0 {
		return errors.New("alignment.workers must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	return nil
}
