package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lucasjlepore/techjournal/internal/config"
	"github.com/lucasjlepore/techjournal/internal/logging"
	"github.com/lucasjlepore/techjournal/store"
)

var (
	configPath string
	storePath  string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "techjournal",
	Short: "Fitness activity journal",
	Long: `techjournal reads FIT, TCX and GPX activity files (plain or gzip-compressed)
into one canonical activity summary, its laps and its track points.

Files can be inspected one at a time, exported as JSON/CSV/parquet/GeoJSON
bundles, or imported from a folder into a local activity store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("store") {
			loaded.StorePath = storePath
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded

		logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: os.Stderr})
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "activity store directory (empty for in-memory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	rootCmd.AddCommand(parseCmd, inspectCmd, importCmd, listCmd, showCmd, deleteCmd, exportCmd, trackCmd)
}

func openStore() (store.Repository, error) {
	if cfg.StorePath == "" {
		logging.Warn().Msg("no store path configured; using an in-memory store")
		return store.OpenBadgerInMemory()
	}
	repo, err := store.OpenBadger(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.StorePath, err)
	}
	return repo, nil
}
