package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/lucasjlepore/techjournal"
	"github.com/lucasjlepore/techjournal/fitstream"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.fit|file.fit.gz>",
	Short: "Show the header, CRC status and message index of a FIT file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := readFIT(args[0])
		if err != nil {
			return err
		}
		ov, err := fitstream.Describe(data)
		if err != nil {
			return err
		}
		sum := ov.Summary

		fmt.Printf("%s: protocol %d, profile %d, %d data bytes\n",
			args[0], sum.Header.ProtocolVersion, sum.Header.ProfileVersion, sum.Header.DataSize)
		fmt.Printf("header crc ok: %t, file crc ok: %t, definitions: %d, trailing bytes: %d\n",
			sum.HeaderCRCValid, sum.FileCRCValid, sum.Definitions, sum.TrailingBytes)
		fmt.Printf("file type: %s, sport: %s/%s\n", orDash(ov.FileType), orDash(ov.Sport), orDash(ov.SubSport))
		if ov.Start != nil && ov.End != nil {
			fmt.Printf("session: %s to %s\n", ov.Start.Format(time.RFC3339), ov.End.Format(time.RFC3339))
		}
		if ov.Distance != nil {
			fmt.Printf("recorded distance: %s\n", techjournal.FormatLength(*ov.Distance))
		}

		names := make([]string, 0, len(ov.Counts))
		for name := range ov.Counts {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if ov.Counts[names[i]] != ov.Counts[names[j]] {
				return ov.Counts[names[i]] > ov.Counts[names[j]]
			}
			return names[i] < names[j]
		})

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Message", "Count"})
		for _, name := range names {
			t.AppendRow(table.Row{name, ov.Counts[name]})
		}
		t.AppendFooter(table.Row{"Total", sum.DataMessages})
		t.SetStyle(table.StyleLight)
		t.Render()
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func readFIT(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".gz") {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip %s: %w", path, err)
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
