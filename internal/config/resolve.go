package config

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.threadwork/config.yaml"
	SourceProject Source = ".threadwork/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

type resolved struct {
	Value  interface{} `json:"value" yaml:"value"`
	Source Source      `json:"source" yaml:"source"`
}

// ResolvedConfig shows config values with their sources.
type ResolvedConfig struct {
	Output             resolved `json:"output" yaml:"output"`
	Verbose            resolved `json:"verbose" yaml:"verbose"`
	StateDir           resolved `json:"state_dir" yaml:"state_dir"`
	SessionBudget      resolved `json:"budget.session_budget" yaml:"budget.session_budget"`
	MaxRetries         resolved `json:"ralph.max_retries" yaml:"ralph.max_retries"`
	GatesParallel      resolved `json:"gates.parallel" yaml:"gates.parallel"`
	GatesTimeout       resolved `json:"gates.timeout" yaml:"gates.timeout"`
	GatesMaxDiagnostic resolved `json:"gates.max_diagnostics" yaml:"gates.max_diagnostics"`
}

// layer is one level of the precedence chain; cfg is nil when absent.
type layer struct {
	source Source
	cfg    *Config
}

// resolveField walks layers lowest to highest, keeping the last non-zero value.
func resolveField[T comparable](def T, layers []layer, get func(*Config) T) resolved {
	var zero T
	result := resolved{Value: def, Source: SourceDefault}
	for _, l := range layers {
		if l.cfg == nil {
			continue
		}
		if v := get(l.cfg); v != zero {
			result = resolved{Value: v, Source: l.source}
		}
	}
	return result
}

// Resolve returns configuration for the project at root with source tracking.
// Uses precedence chain: flags > env > project > home > defaults. Files that
// fail to parse are treated as absent.
func Resolve(root string, flags *Config) *ResolvedConfig {
	homeConfig, _ := loadFromPath(homeConfigPath())           //nolint:errcheck // unreadable layer reported as absent
	projectConfig, _ := loadFromPath(projectConfigPath(root)) //nolint:errcheck // unreadable layer reported as absent

	layers := []layer{
		{SourceHome, homeConfig},
		{SourceProject, projectConfig},
		{SourceEnv, envConfig()},
		{SourceFlag, flags},
	}

	rc := &ResolvedConfig{
		Output:   resolveField(defaultOutput, layers, func(c *Config) string { return c.Output }),
		Verbose:  resolveField(false, layers, func(c *Config) bool { return c.Verbose }),
		StateDir: resolveField(defaultStateDir, layers, func(c *Config) string { return c.StateDir }),
		SessionBudget: resolveField(defaultSessionBudget, layers,
			func(c *Config) int { return c.Budget.SessionBudget }),
		MaxRetries: resolveField(defaultMaxRetries, layers,
			func(c *Config) int { return c.Ralph.MaxRetries }),
		GatesParallel: resolved{Value: false, Source: SourceDefault},
		GatesTimeout: resolveField(defaultGateTimeout, layers,
			func(c *Config) string { return c.Gates.Timeout }),
		GatesMaxDiagnostic: resolveField(defaultMaxDiagnostics, layers,
			func(c *Config) int { return c.Gates.MaxDiagnostics }),
	}

	// Parallel can be explicitly switched off, so presence matters, not value.
	for _, l := range layers {
		if l.cfg != nil && l.cfg.Gates.Parallel != nil {
			rc.GatesParallel = resolved{Value: *l.cfg.Gates.Parallel, Source: l.source}
		}
	}

	return rc
}
