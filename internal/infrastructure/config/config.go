// Package config loads the settings file that locates templates and output.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

const DefaultPath = "grouppolicy.yaml"

// Settings is loaded once at startup and passed down explicitly.
type Settings struct {
	Paths     PathSettings     `yaml:"paths"`
	Templates TemplateSettings `yaml:"templates"`
	Database  DatabaseSettings `yaml:"database"`
	Log       LogSettings      `yaml:"log"`
}

type PathSettings struct {
	TemplatesPath   string `yaml:"templates_path"`
	DestinationPath string `yaml:"destination_path"`
}

// TemplateSettings overrides the template file names. Empty keeps the defaults.
type TemplateSettings struct {
	Set   string `yaml:"set"`
	Clear string `yaml:"clear"`
}

// DatabaseSettings points at an IPAM database used to look up a resume point.
type DatabaseSettings struct {
	DSN string `yaml:"dsn"`
}

type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and validates the settings file at path.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes settings, rejecting unknown keys.
func Parse(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return &s, nil
}

func (s *Settings) validate() error {
	var errs []error
	if s.Paths.TemplatesPath == "" {
		errs = append(errs, errors.New("paths.templates_path is required"))
	}
	if s.Paths.DestinationPath == "" {
		errs = append(errs, errors.New("paths.destination_path is required"))
	}
	return errors.Join(errs...)
}
