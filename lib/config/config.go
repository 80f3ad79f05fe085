// Copyright 2026 The Desktop Assist Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "DESKTOP_ASSIST_CONFIG"

// Config is the complete desktop-assist configuration.
type Config struct {
	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Agent configures the agent CLI invocation.
	Agent AgentConfig `yaml:"agent"`

	// Supervisor configures process supervision.
	Supervisor SupervisorConfig `yaml:"supervisor"`

	// SessionLog configures the per-run JSONL log.
	SessionLog SessionLogConfig `yaml:"session_log"`

	// Display configures terminal progress output.
	Display DisplayConfig `yaml:"display"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Sessions is where session logs are written.
	// Default: ${HOME}/.desktop-assist/sessions
	Sessions string `yaml:"sessions"`

	// State holds runtime state: active-run markers live in
	// <state>/active.
	// Default: ${HOME}/.desktop-assist/state
	State string `yaml:"state"`
}

// AgentConfig configures the agent CLI invocation.
type AgentConfig struct {
	// Binary is the agent CLI, resolved on PATH. Default: claude
	Binary string `yaml:"binary"`

	// Model is passed as --model when set.
	Model string `yaml:"model"`

	// MaxTurns is passed as --max-turns when positive.
	MaxTurns int `yaml:"max_turns"`

	// MaxBudgetUSD is the spend ceiling. Default: 1.00
	MaxBudgetUSD float64 `yaml:"max_budget_usd"`

	// AllowedTools are the agent tools permitted. Default: Bash, Read
	AllowedTools []string `yaml:"allowed_tools"`

	// Interpreter is the python executable named in the instructions.
	// Default: python3
	Interpreter string `yaml:"interpreter"`
}

// SupervisorConfig configures process supervision.
type SupervisorConfig struct {
	// Timeout bounds a run. Empty or "0" means unbounded.
	Timeout string `yaml:"timeout"`

	// GracePeriod is the wait between SIGTERM and SIGKILL. Default: 3s
	GracePeriod string `yaml:"grace_period"`

	// ReapTimeout bounds the wait after SIGKILL. Default: 2s
	ReapTimeout string `yaml:"reap_timeout"`
}

// SessionLogConfig configures the per-run log.
type SessionLogConfig struct {
	// Enabled turns session logging on. Default: true
	Enabled bool `yaml:"enabled"`

	// PreviewLength bounds free-text fields in the log. Default: 500
	PreviewLength int `yaml:"preview_length"`

	// ResumeLines caps the transcript of a resume prompt. Default: 30
	ResumeLines int `yaml:"resume_lines"`
}

// DisplayConfig configures terminal progress output.
type DisplayConfig struct {
	// SummaryLength bounds the one-line tool call summary. Default: 120
	SummaryLength int `yaml:"summary_length"`

	// PreviewLength bounds the tool output preview. Default: 200
	PreviewLength int `yaml:"preview_length"`

	// Colour is "auto", "always", or "never". Default: auto
	Colour string `yaml:"colour"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Sessions: "${HOME}/.desktop-assist/sessions",
			State:    "${HOME}/.desktop-assist/state",
		},
		Agent: AgentConfig{
			Binary:       "claude",
			MaxBudgetUSD: 1.00,
			AllowedTools: []string{"Bash", "Read"},
			Interpreter:  "python3",
		},
		Supervisor: SupervisorConfig{
			GracePeriod: "3s",
			ReapTimeout: "2s",
		},
		SessionLog: SessionLogConfig{
			Enabled:       true,
			PreviewLength: 500,
			ResumeLines:   30,
		},
		Display: DisplayConfig{
			SummaryLength: 120,
			PreviewLength: 200,
			Colour:        "auto",
		},
	}
}

// Load loads configuration from the file named by explicitPath, or by
// DESKTOP_ASSIST_CONFIG when explicitPath is empty. With neither, it
// returns Default with variables expanded.
func Load(explicitPath string) (*Config, error) {
	path := explicitPath
	if path == "" {
		path = os.Getenv(EnvironmentVariable)
	}
	if path == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path, merged over
// Default.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	// An empty file decodes to io.EOF and means "all defaults".
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": homeDirectory(),
	}
	c.Paths.Sessions = expandVars(c.Paths.Sessions, vars)
	c.Paths.State = expandVars(c.Paths.State, vars)
}

func homeDirectory() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	home, _ := os.UserHomeDir()
	return home
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Paths.Sessions == "" {
		errs = append(errs, errors.New("paths.sessions is required"))
	}
	if c.Paths.State == "" {
		errs = append(errs, errors.New("paths.state is required"))
	}
	if c.Agent.Binary == "" {
		errs = append(errs, errors.New("agent.binary is required"))
	}
	if c.Agent.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("agent.max_turns must not be negative, got %d", c.Agent.MaxTurns))
	}
	if c.Agent.MaxBudgetUSD <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_budget_usd must be positive, got %v", c.Agent.MaxBudgetUSD))
	}
	if len(c.Agent.AllowedTools) == 0 {
		errs = append(errs, errors.New("agent.allowed_tools must name at least one tool"))
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"supervisor.timeout", c.Supervisor.Timeout},
		{"supervisor.grace_period", c.Supervisor.GracePeriod},
		{"supervisor.reap_timeout", c.Supervisor.ReapTimeout},
	} {
		if _, err := parseDuration(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		}
	}

	if c.SessionLog.PreviewLength <= 0 {
		errs = append(errs, fmt.Errorf("session_log.preview_length must be positive, got %d", c.SessionLog.PreviewLength))
	}
	if c.SessionLog.ResumeLines <= 0 {
		errs = append(errs, fmt.Errorf("session_log.resume_lines must be positive, got %d", c.SessionLog.ResumeLines))
	}
	if c.Display.SummaryLength <= 0 {
		errs = append(errs, fmt.Errorf("display.summary_length must be positive, got %d", c.Display.SummaryLength))
	}
	if c.Display.PreviewLength <= 0 {
		errs = append(errs, fmt.Errorf("display.preview_length must be positive, got %d", c.Display.PreviewLength))
	}
	switch c.Display.Colour {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("display.colour must be auto, always, or never, got %q", c.Display.Colour))
	}

	return errors.Join(errs...)
}

// Timeout returns the run timeout; zero means unbounded.
func (c *Config) Timeout() time.Duration {
	d, _ := parseDuration(c.Supervisor.Timeout)
	return d
}

// GracePeriod returns the SIGTERM to SIGKILL wait.
func (c *Config) GracePeriod() time.Duration {
	d, _ := parseDuration(c.Supervisor.GracePeriod)
	return d
}

// ReapTimeout returns the wait after SIGKILL.
func (c *Config) ReapTimeout() time.Duration {
	d, _ := parseDuration(c.Supervisor.ReapTimeout)
	return d
}

// MarkerDir is where active-run markers are written.
func (c *Config) MarkerDir() string {
	return filepath.Join(c.Paths.State, "active")
}

// EnsurePaths creates the sessions and state directories.
func (c *Config) EnsurePaths() error {
	for _, dir := range []string{c.Paths.Sessions, c.Paths.State, c.MarkerDir()} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// parseDuration accepts "" and "0" as zero.
func parseDuration(value string) (time.Duration, error) {
	if value == "" || value == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q is negative", value)
	}
	return d, nil
}
