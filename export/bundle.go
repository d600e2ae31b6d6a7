// Package export writes parsed activities to disk or memory as JSON, CSV,
// parquet and GeoJSON artifacts.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/lucasjlepore/techjournal"
)

const (
	ActivityFile = "activity.json"
	LapsFile     = "laps.json"
	TrackFile    = "track.geojson"
	SummaryFile  = "summary.txt"
)

type Options struct {
	// Format of the points table: parquet (default) or csv.
	Format string
	// Overwrite allows writing into a non-empty directory.
	Overwrite bool
}

// Artifacts lists the files written by WriteBundle.
type Artifacts struct {
	OutputDir string
	Files     []string
}

// PointsFile returns the points table name for a format.
func PointsFile(format string) string {
	if normalizeFormat(format) == "csv" {
		return "points.csv"
	}
	return "points.parquet"
}

// WriteBundle writes every artifact for res into outDir.
func WriteBundle(outDir string, res *techjournal.Result, opts Options) (*Artifacts, error) {
	if strings.TrimSpace(outDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	format := normalizeFormat(opts.Format)
	if format == "" {
		return nil, fmt.Errorf("unsupported format %q (expected parquet|csv)", opts.Format)
	}
	if err := prepareOutputDir(outDir, opts.Overwrite); err != nil {
		return nil, err
	}

	files, err := Bundle(res, Options{Format: "csv"})
	if err != nil {
		return nil, err
	}
	if format == "parquet" {
		delete(files, PointsFile("csv"))
	}

	out := &Artifacts{OutputDir: outDir}
	for _, name := range sortedNames(files) {
		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, files[name], 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", name, err)
		}
		out.Files = append(out.Files, path)
	}
	if format == "parquet" {
		path := filepath.Join(outDir, PointsFile(format))
		if err := WritePointsParquet(path, res.Points); err != nil {
			return nil, fmt.Errorf("write points parquet: %w", err)
		}
		out.Files = append(out.Files, path)
		sort.Strings(out.Files)
	}
	return out, nil
}

// Bundle renders every artifact for res in memory, keyed by file name.
func Bundle(res *techjournal.Result, opts Options) (map[string][]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("result is required")
	}
	format := normalizeFormat(opts.Format)
	if format == "" {
		return nil, fmt.Errorf("unsupported format %q (expected parquet|csv)", opts.Format)
	}

	files := make(map[string][]byte, 5)
	var err error
	if files[ActivityFile], err = marshalJSON(res.Activity); err != nil {
		return nil, fmt.Errorf("marshal activity: %w", err)
	}
	if files[LapsFile], err = marshalJSON(res.Laps); err != nil {
		return nil, fmt.Errorf("marshal laps: %w", err)
	}
	if files[TrackFile], err = marshalJSON(TrackGeoJSON(res.Activity, res.Points)); err != nil {
		return nil, fmt.Errorf("marshal track: %w", err)
	}
	files[SummaryFile] = []byte(techjournal.BuildNotes(res))

	switch format {
	case "csv":
		var buf bytes.Buffer
		if err := WritePointsCSV(&buf, res.Points); err != nil {
			return nil, fmt.Errorf("write points csv: %w", err)
		}
		files[PointsFile(format)] = buf.Bytes()
	case "parquet":
		data, err := MarshalPointsParquet(res.Points)
		if err != nil {
			return nil, fmt.Errorf("write points parquet: %w", err)
		}
		files[PointsFile(format)] = data
	}
	return files, nil
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "parquet":
		return "parquet"
	case "csv":
		return "csv"
	default:
		return ""
	}
}

func prepareOutputDir(dir string, overwrite bool) error {
	entries, err := os.ReadDir(dir)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(dir, 0o755)
	case err != nil:
		return fmt.Errorf("read output directory: %w", err)
	case len(entries) > 0 && !overwrite:
		return fmt.Errorf("output directory %s is not empty", dir)
	}
	return nil
}

func sortedNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
