package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the project directory and its parents.
const FileName = ".scorecheck.yaml"

// DefaultAPIURL is the public package-health scoring service.
const DefaultAPIURL = "https://openteams-score.vercel.app"

// EnvPrefix matches the variables GitHub Actions sets for action inputs (INPUT_ECOSYSTEM, ...).
const EnvPrefix = "INPUT"

// Keys shared by flags, INPUT_* environment variables and viper.
const (
	KeyEcosystem    = "ecosystem"
	KeyFile         = "file"
	KeyAPIURL       = "api-url"
	KeyReportFormat = "report-format"
	KeyReportFile   = "report-file"
	KeyFailOnError  = "fail-on-error"
)

// ErrUnsupportedEcosystem is returned when the ecosystem input is anything other than a supported one.
var ErrUnsupportedEcosystem = errors.New("unsupported ecosystem")

// ecosystems maps the accepted ecosystem input to the path segment the scoring API expects.
var ecosystems = map[string]string{
	"pip": "pypi",
}

// Config represents the configuration for a scorecheck run
type Config struct {
	// Package ecosystem of the manifest. Only "pip" is supported.
	Ecosystem string `yaml:"ecosystem"`

	// Manifest path, relative to the working directory
	File string `yaml:"file"`

	// Base URL of the scoring API
	APIURL string `yaml:"apiUrl"`

	// Optional report written after the annotations
	Report struct {
		Format string `yaml:"format"` // text, json, sarif (empty: no report)
		File   string `yaml:"file"`   // Output file path (stderr if empty)
	} `yaml:"report"`

	// Exit non-zero when any package lookup failed
	FailOnError bool `yaml:"failOnError"`

	// Ignore specific packages
	IgnorePackages []string `yaml:"ignorePackages"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Ecosystem: "pip",
		File:      "requirements.txt",
		APIURL:    DefaultAPIURL,
	}
}

// LoadConfig loads the configuration from the specified file path
// If no path is provided, it looks for .scorecheck.yaml in the current directory
func LoadConfig(configPath string) (*Config, error) {
	config := DefaultConfig()

	explicit := configPath != ""
	if !explicit {
		configPath = FileName
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("config file %s does not exist", configPath)
		}
		return config, nil
	}

	if err := readInto(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

// FindAndLoadConfig searches for a config file in the project directory and its parents
func FindAndLoadConfig(projectPath string) (*Config, error) {
	config := DefaultConfig()

	currentDir, err := filepath.Abs(projectPath)
	if err != nil {
		return nil, fmt.Errorf("error resolving %s: %w", projectPath, err)
	}
	for {
		configPath := filepath.Join(currentDir, FileName)
		if _, err := os.Stat(configPath); err == nil {
			if err := readInto(configPath, config); err != nil {
				return nil, err
			}
			return config, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return config, nil
}

func readInto(configPath string, config *Config) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %w", configPath, err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("error parsing config file %s: %w", configPath, err)
	}
	return nil
}

// ApplyOverrides layers values from v (flags and INPUT_* variables) on top of the file configuration.
// Only keys that were explicitly set win.
func (c *Config) ApplyOverrides(v *viper.Viper) {
	if v == nil {
		return
	}
	if v.IsSet(KeyEcosystem) {
		c.Ecosystem = v.GetString(KeyEcosystem)
	}
	if v.IsSet(KeyFile) {
		c.File = v.GetString(KeyFile)
	}
	if v.IsSet(KeyAPIURL) {
		c.APIURL = v.GetString(KeyAPIURL)
	}
	if v.IsSet(KeyReportFormat) {
		c.Report.Format = v.GetString(KeyReportFormat)
	}
	if v.IsSet(KeyReportFile) {
		c.Report.File = v.GetString(KeyReportFile)
	}
	if v.IsSet(KeyFailOnError) {
		c.FailOnError = v.GetBool(KeyFailOnError)
	}
}

// NewViper returns a viper instance reading INPUT_-prefixed environment variables.
// GitHub keeps dashes in input names, so "api-url" is read from INPUT_API-URL.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Validate reports configuration errors that must stop the run before any processing.
func (c *Config) Validate() error {
	c.Ecosystem = strings.ToLower(strings.TrimSpace(c.Ecosystem))
	if _, ok := ecosystems[c.Ecosystem]; !ok {
		return fmt.Errorf("%w: %q (supported: pip)", ErrUnsupportedEcosystem, c.Ecosystem)
	}
	if strings.TrimSpace(c.File) == "" {
		return errors.New("manifest file must not be empty")
	}
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api url must not be empty")
	}
	switch c.Report.Format {
	case "", "text", "json", "sarif":
	default:
		return fmt.Errorf("unsupported report format %q (text, json, sarif)", c.Report.Format)
	}
	return nil
}

// APIEcosystem returns the path segment the scoring API uses for the configured ecosystem.
func (c *Config) APIEcosystem() (string, error) {
	return APIEcosystem(c.Ecosystem)
}

// APIEcosystem maps an ecosystem input to its scoring API path segment.
func APIEcosystem(ecosystem string) (string, error) {
	segment, ok := ecosystems[ecosystem]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEcosystem, ecosystem)
	}
	return segment, nil
}

// IsPackageIgnored checks if a package should be ignored based on the configuration
func (c *Config) IsPackageIgnored(packageName string) bool {
	for _, ignoredPackage := range c.IgnorePackages {
		if strings.EqualFold(ignoredPackage, packageName) {
			return true
		}
	}
	return false
}
