package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/lucasjlepore/techjournal"
	"github.com/lucasjlepore/techjournal/internal/logging"
)

var parseJSON bool

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse one activity file and print its summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := techjournal.ParseFile(args[0])
		if err != nil {
			return err
		}
		for _, w := range res.Warnings {
			logging.Warn().Str("file", args[0]).Msg(w)
		}

		if parseJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		fmt.Print(techjournal.BuildNotes(res))
		return nil
	},
}

func init() {
	parseCmd.Flags().BoolVar(&parseJSON, "json", false, "emit activity, laps and points as JSON")
}
