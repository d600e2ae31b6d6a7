package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/lucasjlepore/techjournal"
	"github.com/lucasjlepore/techjournal/canonical"
	"github.com/lucasjlepore/techjournal/store"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored activities by start time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()

		activities, err := repo.List(cmd.Context())
		if err != nil {
			return err
		}
		renderActivities(activities)
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print the summary notes of a stored activity",
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
		fmt.Print(techjournal.BuildNotes(resultFromRecord(rec)))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a stored activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openStore()
		if err != nil {
			return err
		}
		defer repo.Close()
		return repo.Delete(cmd.Context(), args[0])
	},
}

func renderActivities(activities []canonical.Activity) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Start", "Sport", "Distance", "Duration", "Laps", "Points", "File"})

	var totalDistance, totalTime float64
	for _, a := range activities {
		start, sport := "-", "-"
		if a.StartTime != nil {
			start = a.StartTime.Format("2006-01-02 15:04")
		}
		if a.Sport != nil {
			sport = *a.Sport
		}
		t.AppendRow(table.Row{
			a.ID,
			start,
			sport,
			techjournal.FormatLength(a.TotalDistance),
			techjournal.FormatDuration(a.TotalElapsedTime, true),
			a.LapCount,
			a.PointCount,
			a.SourceFileName,
		})
		totalDistance += a.TotalDistance
		totalTime += a.TotalElapsedTime
	}

	t.AppendSeparator()
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d activities", len(activities)), "", "",
		techjournal.FormatLength(totalDistance),
		techjournal.FormatDuration(totalTime, true),
		"", "", "",
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

func resultFromRecord(rec *store.Record) *techjournal.Result {
	return &techjournal.Result{Activity: rec.Activity, Laps: rec.Laps, Points: rec.Points}
}
