package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MinWordLength != 3 || cfg.MaxWordLength != 84 {
		t.Errorf("word lengths = %d/%d, want 3/84", cfg.MinWordLength, cfg.MaxWordLength)
	}
	if cfg.InlineListLimit != 500 || cfg.ItemMarkerLimit != 1000 {
		t.Errorf("limits = %d/%d, want 500/1000", cfg.InlineListLimit, cfg.ItemMarkerLimit)
	}
	if cfg.TitleBoost != 5 || cfg.ResultsPerPage != 25 {
		t.Errorf("boost/page = %v/%d, want 5/25", cfg.TitleBoost, cfg.ResultsPerPage)
	}
}

func TestLoadConfigParsesAndClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := []byte(`
dsn = "user:pass@tcp(localhost:3306)/community"
min_word_length = 4
inline_list_limit = -1
optimized_mode = true
lookback_days = 30
stopwords = ["foo", "bar"]
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DSN != "user:pass@tcp(localhost:3306)/community" {
		t.Errorf("dsn = %q", cfg.DSN)
	}
	if cfg.MinWordLength != 4 {
		t.Errorf("min word length = %d, want 4", cfg.MinWordLength)
	}
	if cfg.InlineListLimit != 500 {
		t.Errorf("invalid inline limit should clamp to 500, got %d", cfg.InlineListLimit)
	}
	if !cfg.OptimizedMode {
		t.Error("optimized_mode not parsed")
	}
	if len(cfg.Stopwords) != 2 {
		t.Errorf("stopwords = %v", cfg.Stopwords)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := DefaultConfig()
	cfg.DSN = "user@tcp(db:3306)/idx"
	cfg.LookbackDays = 90
	if err := cfg.SaveConfig(path); err != nil {
		t.Fatal(err)
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.DSN != cfg.DSN || got.LookbackDays != 90 {
		t.Errorf("reloaded config = %+v", got)
	}
}

func TestMatchRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinWordLength = 2
	cfg.Stopwords = []string{"foo"}

	rules := cfg.MatchRules()
	if rules.MinWordLength != 2 {
		t.Errorf("min word length = %d, want 2", rules.MinWordLength)
	}
	if _, ok := rules.Stopwords["foo"]; !ok {
		t.Error("configured stopword missing")
	}
	if _, ok := rules.Stopwords["the"]; ok {
		t.Error("configured stopwords must replace the stock list, not extend it")
	}
}

func TestEffectiveLookbackDays(t *testing.T) {
	tests := []struct {
		name      string
		optimized bool
		lookback  int
		want      int
	}{
		{"unlimited", false, 0, 0},
		{"configured", false, 30, 30},
		{"optimized narrows unlimited to a year", true, 0, 365},
		{"optimized caps long windows", true, 700, 365},
		{"optimized keeps short windows", true, 30, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.OptimizedMode = tt.optimized
			cfg.LookbackDays = tt.lookback
			if got := cfg.EffectiveLookbackDays(); got != tt.want {
				t.Errorf("EffectiveLookbackDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRelevancyEnabled(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.RelevancyEnabled() {
		t.Error("relevancy should be enabled by default")
	}
	cfg.OptimizedMode = true
	if cfg.RelevancyEnabled() {
		t.Error("optimized mode disables relevancy ranking")
	}
}
