package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/lucasjlepore/techjournal"
	"github.com/lucasjlepore/techjournal/export"
	"github.com/lucasjlepore/techjournal/internal/logging"
)

var (
	exportOut       string
	exportFormat    string
	exportOverwrite bool
	exportFromStore bool

	trackOut string
)

var exportCmd = &cobra.Command{
	Use:   "export <file|id>",
	Short: "Write the JSON, points table, GeoJSON and summary bundle for an activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var res *techjournal.Result
		if exportFromStore {
			repo, err := openStore()
			if err != nil {
				return err
			}
			defer repo.Close()
			rec, err := repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res = resultFromRecord(rec)
		} else {
			parsed, err := techjournal.ParseFile(args[0])
			if err != nil {
				return err
			}
			res = parsed
		}

		outDir := exportOut
		if outDir == "" {
			outDir = cfg.Export.OutDir
		}
		format := exportFormat
		if format == "" {
			format = cfg.Export.Format
		}

		arts, err := export.WriteBundle(outDir, res, export.Options{Format: format, Overwrite: exportOverwrite})
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			logging.Warn().Msg(w)
		}
		for _, f := range arts.Files {
			fmt.Println(f)
		}
		return nil
	},
}

var trackCmd = &cobra.Command{
	Use:   "track <id>",
	Short: "Write the GeoJSON track of a stored activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		rec, err := repo.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := os.Stdout
		if trackOut != "" {
			f, err := os.Create(trackOut)
			if err != nil {
				return fmt.Errorf("create %s: %w", trackOut, err)
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(export.TrackGeoJSON(rec.Activity, rec.Points))
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output directory (export.out_dir from config when empty)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "points table format: parquet or csv")
	exportCmd.Flags().BoolVar(&exportOverwrite, "overwrite", false, "write into a non-empty output directory")
	exportCmd.Flags().BoolVar(&exportFromStore, "stored", false, "treat the argument as a stored activity id")

	trackCmd.Flags().StringVarP(&trackOut, "out", "o", "", "output file (stdout when empty)")
}
