// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ferret-risk/internal/matcher"
	"ferret-risk/internal/taxonomy"
)

// Environment variables read by ApplyEnv and FindConfigFile.
const (
	EnvNERURL = "FERRET_NER_URL"
	EnvConfig = "FERRET_CONFIG"
)

// Formats accepted for defaults.format and profile formats.
var Formats = []string{"json", "yaml", "text", "csv"}

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Format  string `yaml:"format"`
		Rules   string `yaml:"rules"`
		Labels  string `yaml:"labels"`
		Debug   bool   `yaml:"debug"`
		NoColor bool   `yaml:"no_color"`
		Port    int    `yaml:"port"`
	} `yaml:"defaults"`

	// Weights override individual entries of the risk-weight table.
	Weights map[string]int `yaml:"weights"`

	Reconcile struct {
		MergeRatio float64 `yaml:"merge_ratio"`
	} `yaml:"reconcile"`

	// NER configures the entity recognizer sidecar. An empty URL disables it.
	NER struct {
		URL           string        `yaml:"url"`
		Timeout       time.Duration `yaml:"timeout"`
		RatePerSecond float64       `yaml:"rate_per_second"`
		Burst         int           `yaml:"burst"`
		MaxRetries    int           `yaml:"max_retries"`
	} `yaml:"ner"`

	Matcher struct {
		ContextChars int `yaml:"context_chars"`
		// Rules are added to, or replace by name, the built-in rules.
		Rules []matcher.Rule `yaml:"rules"`
	} `yaml:"matcher"`

	Extract struct {
		MaxFileSizeMB int64 `yaml:"max_file_size_mb"`
		MaxPages      int   `yaml:"max_pages"`
	} `yaml:"extract"`

	// Profiles for different scanning scenarios
	Profiles map[string]Profile `yaml:"profiles"`
}

// Profile is a named bundle of defaults.
type Profile struct {
	Description string         `yaml:"description"`
	Format      string         `yaml:"format"`
	Rules       string         `yaml:"rules"`
	Labels      string         `yaml:"labels"`
	Weights     map[string]int `yaml:"weights"`
}

// Default returns the built-in configuration.
func Default() *Config {
	config := &Config{
		Weights:  make(map[string]int),
		Profiles: make(map[string]Profile),
	}

	config.Defaults.Format = "text"
	config.Defaults.Rules = "all"
	config.Defaults.Labels = "all"
	config.Defaults.Port = 8080

	config.Reconcile.MergeRatio = 0.8

	config.NER.Timeout = 10 * time.Second
	config.NER.RatePerSecond = 5
	config.NER.Burst = 5
	config.NER.MaxRetries = 2

	config.Matcher.ContextChars = 20

	config.Extract.MaxFileSizeMB = 100
	config.Extract.MaxPages = 500

	config.Profiles["identifiers"] = Profile{
		Description: "Government and financial identifiers only",
		Rules:       "rrn,fgn,card,bank_account,passport,driver_license",
	}
	config.Profiles["contact"] = Profile{
		Description: "Contact details and named people",
		Rules:       "email,mobile_phone",
		Labels:      "PS",
	}

	return config
}

// LoadConfig loads configuration from the specified file path. An empty
// path returns the defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath == "" {
		return config, nil
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadConfigOrDefault loads configFile, falling back to the defaults when
// the file is missing or invalid.
func LoadConfigOrDefault(configFile string) *Config {
	config, err := LoadConfig(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using default configuration\n", err)
		return Default()
	}
	return config
}

// LoadEnv reads a .env file from the working directory when one exists.
// Variables already set in the environment win.
func LoadEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from the environment.
func ApplyEnv(config *Config) {
	if url := strings.TrimSpace(os.Getenv(EnvNERURL)); url != "" {
		config.NER.URL = url
	}
}

// FindConfigFile returns the first configuration file found: the
// FERRET_CONFIG variable, then the working directory, then the user
// config directory. It returns "" when none exists.
func FindConfigFile() string {
	if p := os.Getenv(EnvConfig); p != "" && fileExists(p) {
		return p
	}
	for _, name := range []string{"ferret-risk.yaml", "ferret-risk.yml", ".ferret-risk.yaml", "config.yaml"} {
		if fileExists(name) {
			return name
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, name := range []string{"config.yaml", "config.yml"} {
			p := filepath.Join(dir, "ferret-risk", name)
			if fileExists(p) {
				return p
			}
		}
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ListProfiles returns the profile names in sorted order.
func (c *Config) ListProfiles() []string {
	profiles := make([]string, 0, len(c.Profiles))
	for name := range c.Profiles {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles
}

// GetProfile returns a profile by name, or nil if not found
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// ApplyProfile copies the non-empty settings of the named profile over
// the defaults.
func (c *Config) ApplyProfile(name string) error {
	p := c.GetProfile(name)
	if p == nil {
		return fmt.Errorf("profile %q not found (available: %s)", name, strings.Join(c.ListProfiles(), ", "))
	}
	if p.Format != "" {
		c.Defaults.Format = p.Format
	}
	if p.Rules != "" {
		c.Defaults.Rules = p.Rules
	}
	if p.Labels != "" {
		c.Defaults.Labels = p.Labels
	}
	if len(p.Weights) > 0 {
		if c.Weights == nil {
			c.Weights = make(map[string]int)
		}
		for k, v := range p.Weights {
			c.Weights[k] = v
		}
	}
	return nil
}

// RiskWeights returns the default weight table with the configured
// overrides applied.
func (c *Config) RiskWeights() taxonomy.Weights {
	return taxonomy.DefaultWeights().With(c.Weights)
}

// RuleList returns the enabled rule names. "all" or empty means every rule,
// returned as nil.
func (c *Config) RuleList() []string {
	return SplitList(c.Defaults.Rules)
}

// SplitList splits a comma-separated list, dropping blanks. "all" and the
// empty string yield nil.
func SplitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "all") {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateConfig checks the configuration for values the scanner cannot use.
func ValidateConfig(config *Config) error {
	if !validFormat(config.Defaults.Format) {
		return fmt.Errorf("invalid format %q (valid: %s)", config.Defaults.Format, strings.Join(Formats, ", "))
	}
	if config.Defaults.Port < 0 || config.Defaults.Port > 65535 {
		return fmt.Errorf("invalid port %d", config.Defaults.Port)
	}
	if r := config.Reconcile.MergeRatio; r <= 0 || r > 1 {
		return fmt.Errorf("reconcile.merge_ratio must be in (0, 1], got %v", r)
	}
	if err := config.RiskWeights().Validate(); err != nil {
		return err
	}
	if config.NER.Timeout < 0 || config.NER.RatePerSecond < 0 || config.NER.Burst < 0 || config.NER.MaxRetries < 0 {
		return errors.New("ner settings must not be negative")
	}
	if config.Matcher.ContextChars < 0 {
		return errors.New("matcher.context_chars must not be negative")
	}
	for i, r := range config.Matcher.Rules {
		if strings.TrimSpace(r.Name) == "" || r.Pattern == "" {
			return fmt.Errorf("matcher.rules[%d]: name and pattern are required", i)
		}
	}
	if config.Extract.MaxFileSizeMB < 0 || config.Extract.MaxPages < 0 {
		return errors.New("extract limits must not be negative")
	}
	for name, p := range config.Profiles {
		if p.Format != "" && !validFormat(p.Format) {
			return fmt.Errorf("profile %q: invalid format %q", name, p.Format)
		}
		if err := taxonomy.Weights(p.Weights).Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", name, err)
		}
	}
	return nil
}

func validFormat(format string) bool {
	for _, f := range Formats {
		if f == format {
			return true
		}
	}
	return false
}
