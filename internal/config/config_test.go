package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

// isolate points HOME at an empty directory so a developer's own
// ~/.playcall.yaml cannot leak into the test.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "")
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Analysis.FAABThreshold != 120 || cfg.Analysis.SearchLimit != 100 || cfg.Analysis.ChatRows != 50 {
		t.Errorf("unexpected analysis defaults %+v", cfg.Analysis)
	}
	if cfg.Breaker.Timeout != 30*time.Second || cfg.Breaker.MaxFailures != 3 {
		t.Errorf("unexpected breaker defaults %+v", cfg.Breaker)
	}
	if cfg.MCP.Path != "/mcp" || !cfg.MCP.Metrics || cfg.Log.Format != "text" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if want := filepath.Join(os.Getenv("HOME"), ".playcall", "playcall.db"); cfg.DB != want {
		t.Errorf("expected db %q, got %q", want, cfg.DB)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "playcall.yaml")
	body := "anthropic:\n  model: test-model\nanalysis:\n  faab_threshold: 90\nbreaker:\n  timeout: 5s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PLAYCALL_LOG_LEVEL", "debug")
	t.Setenv("PLAYCALL_ANALYSIS_CHAT_ROWS", "10")

	cfg, err := Load(viper.New(), path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Anthropic.Model != "test-model" || cfg.Analysis.FAABThreshold != 90 || cfg.Breaker.Timeout != 5*time.Second {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Log.Level != "debug" || cfg.Analysis.ChatRows != 10 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadHomeFile(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	if err := os.WriteFile(filepath.Join(home, ".playcall.yaml"), []byte("db: from-home.db\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DB != "from-home.db" {
		t.Errorf("expected db from home config, got %q", cfg.DB)
	}
}

func TestLoadAPIKeyFallback(t *testing.T) {
	isolate(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	cfg, err := Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Anthropic.APIKey != "sk-env" {
		t.Errorf("expected fallback key, got %q", cfg.Anthropic.APIKey)
	}

	t.Setenv("PLAYCALL_ANTHROPIC_API_KEY", "sk-playcall")
	cfg, err = Load(viper.New(), "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Anthropic.APIKey != "sk-playcall" {
		t.Errorf("expected PLAYCALL_ key to win, got %q", cfg.Anthropic.APIKey)
	}
}

func TestLoadErrors(t *testing.T) {
	isolate(t)
	if _, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing explicit config file")
	}

	cases := map[string]string{
		"PLAYCALL_LOG_FORMAT":          "xml",
		"PLAYCALL_ANALYSIS_CHAT_ROWS":  "0",
		"PLAYCALL_ROSTER_PLAYERS_FILE": "players.csv",
		"PLAYCALL_MCP_PATH":            "mcp",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(viper.New(), ""); err == nil {
				t.Errorf("expected validation error for %s=%s", key, val)
			}
		})
	}
}
