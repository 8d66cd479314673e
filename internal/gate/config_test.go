package gate

import (
	"errors"
	"os"
	"testing"

	"github.com/threadwork-cc/threadwork/internal/storage"
)

func writeQualityConfig(t *testing.T, store *storage.FileStore, body string) {
	t.Helper()
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(store.Path(storage.QualityConfigFile), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		kind     Kind
		enabled  bool
		blocking bool
	}{
		{Typecheck, true, true},
		{Lint, true, true},
		{Tests, true, true},
		{Build, false, false},
		{Security, true, false},
	}
	for _, tt := range tests {
		s := cfg.Setting(tt.kind)
		if s.Enabled != tt.enabled || s.Blocking != tt.blocking {
			t.Errorf("%s = %+v, want enabled=%v blocking=%v", tt.kind, s, tt.enabled, tt.blocking)
		}
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	store := storage.NewFileStore(storage.WithDir(t.TempDir()))
	cfg, err := LoadConfig(store)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg != DefaultConfig() {
		t.Errorf("LoadConfig() = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_FieldFallback(t *testing.T) {
	store := storage.NewFileStore(storage.WithDir(t.TempDir()))
	writeQualityConfig(t, store, `{
  "_version": "1",
  "lint": {"enabled": false},
  "tests": {"blocking": false, "minCoverage": 80},
  "build": {"enabled": true},
  "futureGate": {"enabled": true}
}`)

	cfg, err := LoadConfig(store)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Lint.Enabled || !cfg.Lint.Blocking {
		t.Errorf("lint = %+v, want disabled and still blocking", cfg.Lint)
	}
	if !cfg.Tests.Enabled || cfg.Tests.Blocking || cfg.MinCoverage() != 80 {
		t.Errorf("tests = %+v", cfg.Tests)
	}
	if !cfg.Build.Enabled || cfg.Build.Blocking {
		t.Errorf("build = %+v", cfg.Build)
	}
	if cfg.Typecheck != DefaultConfig().Typecheck {
		t.Errorf("typecheck = %+v, want default", cfg.Typecheck)
	}
}

func TestLoadConfig_TopLevelMinCoverage(t *testing.T) {
	store := storage.NewFileStore(storage.WithDir(t.TempDir()))
	writeQualityConfig(t, store, `{"minCoverage": 65.5}`)

	cfg, err := LoadConfig(store)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinCoverage() != 65.5 {
		t.Errorf("MinCoverage() = %v, want 65.5", cfg.MinCoverage())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"lint": `},
		{"wrong type", `{"lint": {"enabled": "no"}}`},
		{"gate not object", `{"tests": true}`},
		{"coverage out of range", `{"tests": {"minCoverage": 140}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storage.NewFileStore(storage.WithDir(t.TempDir()))
			writeQualityConfig(t, store, tt.body)

			cfg, err := LoadConfig(store)
			if !errors.Is(err, ErrInvalidQualityConfig) {
				t.Errorf("LoadConfig() error = %v, want ErrInvalidQualityConfig", err)
			}
			if cfg != DefaultConfig() {
				t.Errorf("invalid config should fall back to defaults, got %+v", cfg)
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	store := storage.NewFileStore(storage.WithDir(t.TempDir()))
	cfg := DefaultConfig()
	cfg.Lint.Blocking = false
	cfg.Tests.MinCoverage = 75

	if err := SaveConfig(store, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	got, err := LoadConfig(store)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if got != cfg {
		t.Errorf("round trip = %+v, want %+v", got, cfg)
	}
}

func TestFingerprint(t *testing.T) {
	a := DefaultConfig()
	b := DefaultConfig()
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal configs must share a fingerprint")
	}
	if len(a.Fingerprint()) != 12 {
		t.Errorf("fingerprint %q should be 12 hex chars", a.Fingerprint())
	}
	b.Lint.Enabled = false
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("changed config must change the fingerprint")
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("lint"); err != nil || k != Lint {
		t.Errorf("ParseKind(lint) = %q, %v", k, err)
	}
	if _, err := ParseKind("format"); err == nil {
		t.Error("ParseKind(format) expected error")
	}
}
