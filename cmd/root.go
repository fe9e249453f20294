package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pable/go-playcall/internal/config"
	"github.com/pable/go-playcall/internal/logging"
)

var (
	cfgFile string

	v   = viper.New()
	cfg config.Config
	log = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "playcall",
	Short: "Fantasy football rankings consolidator",
	Long: `Paste, upload or fetch rankings from any number of sources and merge them
into one table with a consensus "snake rank" per player.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default $HOME/.playcall.yaml)")
	pf.String("db", config.DefaultDBPath(), "path to SQLite snapshot database")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text or json)")
	pf.String("api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
	pf.String("model", "claude-haiku-4-5-20251001", "Anthropic model to use")

	bind := map[string]string{
		"db":                "db",
		"log.level":         "log-level",
		"log.format":        "log-format",
		"anthropic.api_key": "api-key",
		"anthropic.model":   "model",
	}
	for key, flag := range bind {
		if err := v.BindPFlag(key, pf.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(shellCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(dropCmd)
	rootCmd.AddCommand(sqlCmd)
	rootCmd.AddCommand(rosterCmd)
	rootCmd.AddCommand(serveCmd)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	cfg = c
	log = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	log.WithField("db", cfg.DB).Debug("configuration loaded")
	return nil
}
