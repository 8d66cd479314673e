package gate

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeebo/blake3"

	"github.com/threadwork-cc/threadwork/internal/storage"
)

// Setting controls one gate. MinCoverage only applies to the tests gate.
type Setting struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Blocking    bool    `json:"blocking" yaml:"blocking"`
	MinCoverage float64 `json:"minCoverage,omitempty" yaml:"min_coverage,omitempty"`
}

// Config is the effective quality-gate configuration.
type Config struct {
	Typecheck Setting `json:"typecheck" yaml:"typecheck"`
	Lint      Setting `json:"lint" yaml:"lint"`
	Tests     Setting `json:"tests" yaml:"tests"`
	Build     Setting `json:"build" yaml:"build"`
	Security  Setting `json:"security" yaml:"security"`
}

// DefaultConfig returns the built-in gate settings.
func DefaultConfig() Config {
	return Config{
		Typecheck: Setting{Enabled: true, Blocking: true},
		Lint:      Setting{Enabled: true, Blocking: true},
		Tests:     Setting{Enabled: true, Blocking: true},
		Build:     Setting{Enabled: false, Blocking: false},
		Security:  Setting{Enabled: true, Blocking: false},
	}
}

// Setting returns the settings for a gate.
func (c Config) Setting(k Kind) Setting {
	switch k {
	case Typecheck:
		return c.Typecheck
	case Lint:
		return c.Lint
	case Tests:
		return c.Tests
	case Build:
		return c.Build
	case Security:
		return c.Security
	}
	return Setting{}
}

func (c *Config) setting(k Kind) *Setting {
	switch k {
	case Typecheck:
		return &c.Typecheck
	case Lint:
		return &c.Lint
	case Tests:
		return &c.Tests
	case Build:
		return &c.Build
	case Security:
		return &c.Security
	}
	return nil
}

// MinCoverage is the minimum test coverage percentage; zero disables the check.
func (c Config) MinCoverage() float64 {
	return c.Tests.MinCoverage
}

// Fingerprint returns a short, stable hash of the configuration. It is part
// of the cache key so a configuration change never reuses a stale result.
func (c Config) Fingerprint() string {
	data, _ := json.Marshal(c) //nolint:errcheck // plain struct, cannot fail
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:6])
}

// settingRecord is the persisted form of a Setting. Absent fields fall back
// to the defaults field by field.
type settingRecord struct {
	Enabled     *bool    `json:"enabled,omitempty"`
	Blocking    *bool    `json:"blocking,omitempty"`
	MinCoverage *float64 `json:"minCoverage,omitempty"`
}

// ConfigRecord is the quality-config.json state record.
type ConfigRecord struct {
	storage.Meta
	Typecheck   *settingRecord `json:"typecheck,omitempty"`
	Lint        *settingRecord `json:"lint,omitempty"`
	Tests       *settingRecord `json:"tests,omitempty"`
	Build       *settingRecord `json:"build,omitempty"`
	Security    *settingRecord `json:"security,omitempty"`
	MinCoverage *float64       `json:"minCoverage,omitempty"`
}

func (r *ConfigRecord) gate(k Kind) *settingRecord {
	switch k {
	case Typecheck:
		return r.Typecheck
	case Lint:
		return r.Lint
	case Tests:
		return r.Tests
	case Build:
		return r.Build
	case Security:
		return r.Security
	}
	return nil
}

// Resolve merges the record over the defaults.
func (r *ConfigRecord) Resolve() Config {
	cfg := DefaultConfig()
	for _, k := range Kinds {
		rec := r.gate(k)
		if rec == nil {
			continue
		}
		s := cfg.setting(k)
		if rec.Enabled != nil {
			s.Enabled = *rec.Enabled
		}
		if rec.Blocking != nil {
			s.Blocking = *rec.Blocking
		}
		if rec.MinCoverage != nil {
			s.MinCoverage = *rec.MinCoverage
		}
	}
	if r.MinCoverage != nil && (r.Tests == nil || r.Tests.MinCoverage == nil) {
		cfg.Tests.MinCoverage = *r.MinCoverage
	}
	return cfg
}

// Record converts a Config into its persisted form.
func (c Config) Record() *ConfigRecord {
	rec := &ConfigRecord{}
	for _, k := range Kinds {
		s := c.Setting(k)
		sr := &settingRecord{Enabled: &s.Enabled, Blocking: &s.Blocking}
		if s.MinCoverage > 0 {
			sr.MinCoverage = &s.MinCoverage
		}
		switch k {
		case Typecheck:
			rec.Typecheck = sr
		case Lint:
			rec.Lint = sr
		case Tests:
			rec.Tests = sr
		case Build:
			rec.Build = sr
		case Security:
			rec.Security = sr
		}
	}
	return rec
}

const configSchemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "coverage": {"type": "number", "minimum": 0, "maximum": 100},
    "gate": {
      "type": "object",
      "properties": {
        "enabled": {"type": "boolean"},
        "blocking": {"type": "boolean"},
        "minCoverage": {"$ref": "#/definitions/coverage"}
      }
    }
  },
  "properties": {
    "schemaVersion": {"type": "string"},
    "updatedAt": {"type": "string"},
    "typecheck": {"$ref": "#/definitions/gate"},
    "lint": {"$ref": "#/definitions/gate"},
    "tests": {"$ref": "#/definitions/gate"},
    "build": {"$ref": "#/definitions/gate"},
    "security": {"$ref": "#/definitions/gate"},
    "minCoverage": {"$ref": "#/definitions/coverage"}
  }
}`

var configSchema = storage.MustCompileSchema("quality-config.schema.json", []byte(configSchemaDoc))

// LoadConfig reads the quality-gate configuration record. A missing record
// yields the defaults. An unreadable or invalid record yields the defaults
// together with an error wrapping ErrInvalidQualityConfig.
func LoadConfig(store *storage.FileStore) (Config, error) {
	var rec ConfigRecord
	found, err := store.ReadValidated(storage.QualityConfigFile, configSchema, &rec)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptRecord) {
			return DefaultConfig(), fmt.Errorf("%w: %w", ErrInvalidQualityConfig, err)
		}
		return DefaultConfig(), err
	}
	if !found {
		return DefaultConfig(), nil
	}
	return rec.Resolve(), nil
}

// SaveConfig persists cfg as the quality-gate configuration record.
func SaveConfig(store *storage.FileStore, cfg Config) error {
	return store.Write(storage.QualityConfigFile, cfg.Record())
}
