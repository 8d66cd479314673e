// Package config provides configuration management for threadwork.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (THREADWORK_*)
// 3. Project config (.threadwork/config.yaml under the project root, or THREADWORK_CONFIG)
// 4. Home config (~/.threadwork/config.yaml)
// 5. Defaults
//
// Per-project records that agents depend on (skill tier, quality-gate
// settings) live in the state directory, not here.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all threadwork configuration.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// Verbose enables verbose output.
	Verbose bool `yaml:"verbose" json:"verbose"`

	// StateDir is the state directory, relative to the project root unless absolute.
	StateDir string `yaml:"state_dir" json:"state_dir"`

	Budget BudgetConfig `yaml:"budget" json:"budget"`
	Ralph  RalphConfig  `yaml:"ralph" json:"ralph"`
	Gates  GatesConfig  `yaml:"gates" json:"gates"`
}

// BudgetConfig holds usage ledger settings.
type BudgetConfig struct {
	// SessionBudget is the allotment a fresh session starts with.
	SessionBudget int `yaml:"session_budget" json:"session_budget"`
}

// RalphConfig holds retry loop settings.
type RalphConfig struct {
	// MaxRetries is the number of blocked completions before escalation.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// GatesConfig holds gate runner settings.
type GatesConfig struct {
	// Parallel runs gates concurrently. Nil means not set at this layer.
	Parallel *bool `yaml:"parallel,omitempty" json:"parallel,omitempty"`

	// Timeout bounds each gate command (Go duration syntax).
	Timeout string `yaml:"timeout" json:"timeout"`

	// MaxDiagnostics caps the diagnostics kept per gate.
	MaxDiagnostics int `yaml:"max_diagnostics" json:"max_diagnostics"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput         = "table"
	defaultStateDir       = ".threadwork/state"
	defaultSessionBudget  = 800_000
	defaultMaxRetries     = 5
	defaultGateTimeout    = "5m"
	defaultMaxDiagnostics = 5
)

// Default returns the default configuration.
func Default() *Config {
	parallel := false
	return &Config{
		Output:   defaultOutput,
		StateDir: defaultStateDir,
		Budget:   BudgetConfig{SessionBudget: defaultSessionBudget},
		Ralph:    RalphConfig{MaxRetries: defaultMaxRetries},
		Gates: GatesConfig{
			Parallel:       &parallel,
			Timeout:        defaultGateTimeout,
			MaxDiagnostics: defaultMaxDiagnostics,
		},
	}
}

// ParallelGates reports whether gates run concurrently.
func (c *Config) ParallelGates() bool {
	return c.Gates.Parallel != nil && *c.Gates.Parallel
}

// GateTimeout parses the gate timeout, falling back to the default.
func (c *Config) GateTimeout() time.Duration {
	d, err := time.ParseDuration(c.Gates.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(defaultGateTimeout)
	}
	return d
}

// StatePath returns the state directory for a project root.
func (c *Config) StatePath(root string) string {
	if filepath.IsAbs(c.StateDir) {
		return c.StateDir
	}
	return filepath.Join(root, c.StateDir)
}

// Validate checks values that would otherwise surface as odd behavior later.
func (c *Config) Validate() error {
	switch c.Output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("%w: output %q (valid: table|json|yaml)", ErrInvalidConfig, c.Output)
	}
	if c.Budget.SessionBudget <= 0 {
		return fmt.Errorf("%w: budget.session_budget must be positive, got %d", ErrInvalidConfig, c.Budget.SessionBudget)
	}
	if c.Ralph.MaxRetries <= 0 {
		return fmt.Errorf("%w: ralph.max_retries must be positive, got %d", ErrInvalidConfig, c.Ralph.MaxRetries)
	}
	if d, err := time.ParseDuration(c.Gates.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("%w: gates.timeout %q is not a positive duration", ErrInvalidConfig, c.Gates.Timeout)
	}
	if c.Gates.MaxDiagnostics <= 0 {
		return fmt.Errorf("%w: gates.max_diagnostics must be positive, got %d", ErrInvalidConfig, c.Gates.MaxDiagnostics)
	}
	return nil
}

// Load loads configuration with proper precedence for the project at root.
// Priority: flags > env > project > home > defaults. Missing files are
// skipped; a file that does not parse is an error.
func Load(root string, flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, err := loadFromPath(homeConfigPath())
	if err != nil {
		return cfg, err
	}
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, err := loadFromPath(projectConfigPath(root))
	if err != nil {
		return cfg, err
	}
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = merge(cfg, envConfig())

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".threadwork", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath(root string) string {
	if override := strings.TrimSpace(os.Getenv("THREADWORK_CONFIG")); override != "" {
		return override
	}
	if root == "" {
		return ""
	}
	return filepath.Join(root, ".threadwork", "config.yaml")
}

// loadFromPath loads config from a YAML file. A missing file yields nil.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	return &cfg, nil
}

// envConfig collects THREADWORK_* overrides into a sparse Config.
// Unparseable numbers are ignored.
func envConfig() *Config {
	cfg := &Config{}
	if v, ok := getEnvString("THREADWORK_OUTPUT"); ok {
		cfg.Output = v
	}
	if v, ok := getEnvString("THREADWORK_STATE_DIR"); ok {
		cfg.StateDir = v
	}
	if v, ok := getEnvBool("THREADWORK_VERBOSE"); ok {
		cfg.Verbose = v
	}
	cfg.Budget.SessionBudget = getEnvInt("THREADWORK_SESSION_BUDGET")
	cfg.Ralph.MaxRetries = getEnvInt("THREADWORK_MAX_RETRIES")
	if v, ok := getEnvBool("THREADWORK_GATES_PARALLEL"); ok {
		cfg.Gates.Parallel = &v
	}
	if v, ok := getEnvString("THREADWORK_GATES_TIMEOUT"); ok {
		cfg.Gates.Timeout = v
	}
	cfg.Gates.MaxDiagnostics = getEnvInt("THREADWORK_GATES_MAX_DIAGNOSTICS")
	return cfg
}

// mergeStr overwrites dst with src when src is non-empty.
func mergeStr(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

// mergeInt overwrites dst with src when src is non-zero.
func mergeInt(dst *int, src int) {
	if src != 0 {
		*dst = src
	}
}

// merge merges src into dst, with src values taking precedence.
// Verbose can only be switched on by a higher layer.
func merge(dst, src *Config) *Config {
	mergeStr(&dst.Output, src.Output)
	mergeStr(&dst.StateDir, src.StateDir)
	if src.Verbose {
		dst.Verbose = true
	}

	mergeInt(&dst.Budget.SessionBudget, src.Budget.SessionBudget)
	mergeInt(&dst.Ralph.MaxRetries, src.Ralph.MaxRetries)
	mergeGates(&dst.Gates, &src.Gates)

	return dst
}

// mergeGates merges gate runner config fields.
func mergeGates(dst, src *GatesConfig) {
	if src.Parallel != nil {
		v := *src.Parallel
		dst.Parallel = &v
	}
	mergeStr(&dst.Timeout, src.Timeout)
	mergeInt(&dst.MaxDiagnostics, src.MaxDiagnostics)
}

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	return v, v != ""
}

// getEnvBool returns the boolean value and whether the env var held one.
func getEnvBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes":
		return true, true
	case "false", "0", "no":
		return false, true
	}
	return false, false
}

// getEnvInt returns the integer value, or 0 when unset or malformed.
func getEnvInt(key string) int {
	v, ok := getEnvString(key)
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
