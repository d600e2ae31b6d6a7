package cmd

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lucasjlepore/techjournal/importer"
	"github.com/lucasjlepore/techjournal/internal/logging"
	"github.com/lucasjlepore/techjournal/internal/metrics"
)

var metricsFile string

var importCmd = &cobra.Command{
	Use:   "import [dir]",
	Short: "Import every supported file in a folder into the store",
	Long: `Import scans a folder (data_dir from the config when omitted) for FIT, TCX
and GPX files and stores each one. Files already imported, by name or by
content, are skipped. A file that fails to parse is reported and the run
continues.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.DataDir
		if len(args) == 1 {
			dir = args[0]
		}

		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		im := importer.New(repo, cfg.Workers, cfg.MaxFiles, logging.Logger())
		start := time.Now()
		sum, err := im.Run(cmd.Context(), dir)
		if sum != nil {
			logging.Info().
				Str("dir", dir).
				Int("discovered", sum.Discovered).
				Int("imported", sum.Imported).
				Int("skipped", sum.Skipped).
				Int("failed", sum.Failed).
				Dur("elapsed", time.Since(start)).
				Msg("import finished")
		}
		reportMetrics()
		if err != nil {
			return err
		}
		if sum.Failed > 0 {
			fmt.Printf("%d of %d files failed to import\n", sum.Failed, sum.Discovered)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the run")
}

// reportMetrics logs the run's counters and, when asked, writes them for a
// textfile collector.
func reportMetrics() {
	snap, err := metrics.Snapshot(prometheus.DefaultGatherer)
	if err != nil {
		logging.Warn().Err(err).Msg("gather metrics")
		return
	}
	ev := logging.Info()
	for name, v := range snap {
		ev = ev.Float64(name, v)
	}
	ev.Msg("import metrics")

	if metricsFile != "" {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			logging.Warn().Err(err).Msg("write metrics file")
		}
	}
}
