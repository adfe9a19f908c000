// Package config holds the engine configuration: the database DSN, the
// full-text tokenizer contract (token length limits, stop words), and
// the tuning knobs the query engine consumes. Values the storage engine
// dictates per deployment live here so nothing is hard-coded.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/communitykit/unisearch/pkg/match"
)

type Config struct {
	// DSN is the MySQL connection string for the search index database.
	DSN string `toml:"dsn"`

	// MinWordLength and MaxWordLength mirror the server's full-text
	// token length limits.
	MinWordLength int `toml:"min_word_length"`
	MaxWordLength int `toml:"max_word_length"`

	// Stopwords the full-text tokenizer ignores. Empty means the stock
	// InnoDB list.
	Stopwords []string `toml:"stopwords,omitempty"`

	// InlineListLimit caps how many ids a pre-fetch may inline into an
	// IN list before falling back to a correlated sub-select.
	// Pre-fetches ask for one row more than this; getting exactly
	// limit+1 rows means the true set is larger.
	InlineListLimit int `toml:"inline_list_limit"`

	// ItemMarkerLimit bounds how many per-item read markers feed one
	// unread boundary.
	ItemMarkerLimit int `toml:"item_marker_limit"`

	// OptimizedMode runs the deployment against a reduced index:
	// relevancy ranking is disabled system-wide and the default
	// lookback narrows to one year.
	OptimizedMode bool `toml:"optimized_mode"`

	// TitleBoost multiplies the title match score in the relevancy
	// formula.
	TitleBoost float64 `toml:"title_boost"`

	// ResultsPerPage is the default page size.
	ResultsPerPage int `toml:"results_per_page"`

	// LookbackDays limits results to recently updated content.
	// Zero means unlimited (unless OptimizedMode narrows it).
	LookbackDays int `toml:"lookback_days"`
}

func DefaultConfig() *Config {
	return &Config{
		MinWordLength:   3,
		MaxWordLength:   84,
		InlineListLimit: 500,
		ItemMarkerLimit: 1000,
		TitleBoost:      5,
		ResultsPerPage:  25,
	}
}

func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if config.MinWordLength <= 0 {
		config.MinWordLength = 3
	}
	if config.MaxWordLength <= 0 {
		config.MaxWordLength = 84
	}
	if config.InlineListLimit <= 0 {
		config.InlineListLimit = 500
	}
	if config.ItemMarkerLimit <= 0 {
		config.ItemMarkerLimit = 1000
	}
	if config.TitleBoost <= 0 {
		config.TitleBoost = 5
	}
	if config.ResultsPerPage <= 0 {
		config.ResultsPerPage = 25
	}

	return config, nil
}

func (c *Config) SaveConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// MatchRules converts the configured tokenizer contract into the rules
// the match builder consumes.
func (c *Config) MatchRules() match.Rules {
	rules := match.DefaultRules()
	rules.MinWordLength = c.MinWordLength
	rules.MaxWordLength = c.MaxWordLength
	if len(c.Stopwords) > 0 {
		rules.Stopwords = make(map[string]struct{}, len(c.Stopwords))
		for _, w := range c.Stopwords {
			rules.Stopwords[w] = struct{}{}
		}
	}
	return rules
}

// RelevancyEnabled reports whether relevancy ranking is available.
// Reduced-index deployments cannot rank by relevance.
func (c *Config) RelevancyEnabled() bool {
	return !c.OptimizedMode
}

// EffectiveLookbackDays is the configured lookback, narrowed to one
// year when the deployment runs in optimized mode.
func (c *Config) EffectiveLookbackDays() int {
	if c.OptimizedMode && (c.LookbackDays == 0 || c.LookbackDays > 365) {
		return 365
	}
	return c.LookbackDays
}

// GetConfigDir returns the configuration directory.
func GetConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	dir := filepath.Join(configDir, "unisearch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return dir, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.toml"), nil
}
