// Package config loads playcall settings from defaults, an optional YAML
// file, PLAYCALL_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PLAYCALL_LOG_LEVEL.
const EnvPrefix = "PLAYCALL"

type Config struct {
	DB        string          `mapstructure:"db"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Log       LogConfig       `mapstructure:"log"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Roster    RosterConfig    `mapstructure:"roster"`
}

type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AnalysisConfig bounds what is sent to the analysis oracle.
type AnalysisConfig struct {
	FAABThreshold float64 `mapstructure:"faab_threshold"` // only players ranked past this get bids
	SearchLimit   int     `mapstructure:"search_limit"`   // top-N sent for sleepers and busts
	ChatRows      int     `mapstructure:"chat_rows"`      // table rows given to chat as context
}

type BreakerConfig struct {
	MaxRequests uint32        `mapstructure:"max_requests"`
	Interval    time.Duration `mapstructure:"interval"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxFailures uint32        `mapstructure:"max_failures"`
}

type MCPConfig struct {
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
	APIKey  string `mapstructure:"api_key"`
	Metrics bool   `mapstructure:"metrics"`
}

// RosterConfig points at replacement roster files. Empty means the bundled
// roster.
type RosterConfig struct {
	PlayersFile string `mapstructure:"players_file"`
	ByesFile    string `mapstructure:"byes_file"`
}

// DefaultDBPath is ~/.playcall/playcall.db, or ./playcall.db when the home
// directory is unknown.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "playcall.db"
	}
	return filepath.Join(home, ".playcall", "playcall.db")
}

// SetDefaults registers every key with its default so that environment
// variables are picked up by Unmarshal even without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", DefaultDBPath())

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 8192)

	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")

	v.SetDefault("analysis.faab_threshold", 120)
	v.SetDefault("analysis.search_limit", 100)
	v.SetDefault("analysis.chat_rows", 50)

	v.SetDefault("breaker.max_requests", 1)
	v.SetDefault("breaker.interval", "0s")
	v.SetDefault("breaker.timeout", "30s")
	v.SetDefault("breaker.max_failures", 3)

	v.SetDefault("mcp.addr", "127.0.0.1:8765")
	v.SetDefault("mcp.path", "/mcp")
	v.SetDefault("mcp.api_key", "")
	v.SetDefault("mcp.metrics", true)

	v.SetDefault("roster.players_file", "")
	v.SetDefault("roster.byes_file", "")
}

// Load reads configuration into a Config. file may be empty, in which case
// $HOME/.playcall.yaml is used when it exists. A missing default file is not
// an error; a missing explicit file is.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		v.SetConfigName(".playcall")
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config %s: %w", filepath.Join(home, ".playcall.yaml"), err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Analysis.FAABThreshold < 0 {
		return fmt.Errorf("analysis.faab_threshold must not be negative, got %v", c.Analysis.FAABThreshold)
	}
	if c.Analysis.SearchLimit <= 0 || c.Analysis.ChatRows <= 0 {
		return errors.New("analysis.search_limit and analysis.chat_rows must be positive")
	}
	if (c.Roster.PlayersFile == "") != (c.Roster.ByesFile == "") {
		return errors.New("roster.players_file and roster.byes_file must be set together")
	}
	if !strings.HasPrefix(c.MCP.Path, "/") {
		return fmt.Errorf("mcp.path must start with /, got %q", c.MCP.Path)
	}
	return nil
}
