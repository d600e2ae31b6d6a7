// Package importer loads a folder of activity files into a repository using a
// bounded pool of workers.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lucasjlepore/techjournal"
	"github.com/lucasjlepore/techjournal/canonical"
	"github.com/lucasjlepore/techjournal/internal/metrics"
	"github.com/lucasjlepore/techjournal/store"
)

// Outcome of importing a single file.
type Outcome string

const (
	Imported Outcome = "imported"
	Skipped  Outcome = "skipped"
	Failed   Outcome = "failed"
)

// FileResult describes what happened to one file.
type FileResult struct {
	Path       string
	Outcome    Outcome
	ActivityID string
	Points     int
	Warnings   []string
	Err        error
}

// Summary aggregates a run. Results are in completion order.
type Summary struct {
	Discovered int
	Imported   int
	Skipped    int
	Failed     int
	Results    []FileResult
}

type Importer struct {
	Parser *techjournal.Parser
	Repo   store.Repository
	// Workers bounds concurrent parses; values below 1 mean 1.
	Workers int
	// MaxFiles caps the number of files considered per run; 0 means no cap.
	MaxFiles int
	Logger   zerolog.Logger
}

func New(repo store.Repository, workers, maxFiles int, logger zerolog.Logger) *Importer {
	return &Importer{
		Parser:   techjournal.NewParser(nil),
		Repo:     repo,
		Workers:  workers,
		MaxFiles: maxFiles,
		Logger:   logger,
	}
}

// Discover lists the files in dir whose extension has a registered decoder,
// sorted by name and capped at MaxFiles.
func (im *Importer) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read import directory: %w", err)
	}
	reg := im.parser().Registry()

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !reg.Supports(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
		if im.MaxFiles > 0 && len(paths) == im.MaxFiles {
			break
		}
	}
	return paths, nil
}

// Run imports every discovered file in dir. Per-file failures are counted in
// the summary and do not stop the run; the returned error is non-nil only
// when discovery fails or ctx is cancelled. Files already stored, by name or
// by activity id, are skipped; concurrent files with the same content store
// one activity and skip the rest.
func (im *Importer) Run(ctx context.Context, dir string) (*Summary, error) {
	paths, err := im.Discover(dir)
	if err != nil {
		return nil, err
	}
	return im.ImportFiles(ctx, paths)
}

// ImportFiles imports the given paths concurrently.
func (im *Importer) ImportFiles(ctx context.Context, paths []string) (*Summary, error) {
	summary := &Summary{Discovered: len(paths)}
	var mu sync.Mutex

	workers := im.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) && len(paths) > 0 {
		workers = len(paths)
	}

	queue := make(chan string)
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(queue)
		for _, p := range paths {
			if err := egCtx.Err(); err != nil {
				return err
			}
			select {
			case queue <- p:
			case <-egCtx.Done():
				return egCtx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			for path := range queue {
				metrics.ActiveWorkers.Inc()
				res := im.importFile(egCtx, path)
				metrics.ActiveWorkers.Dec()

				im.logResult(res)
				mu.Lock()
				summary.Results = append(summary.Results, res)
				switch res.Outcome {
				case Imported:
					summary.Imported++
				case Skipped:
					summary.Skipped++
				case Failed:
					summary.Failed++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return summary, fmt.Errorf("import cancelled: %w", err)
	}
	return summary, nil
}

func (im *Importer) importFile(ctx context.Context, path string) FileResult {
	out := FileResult{Path: path}
	fail := func(err error) FileResult {
		out.Outcome = Failed
		out.Err = err
		metrics.FilesFailedTotal.WithLabelValues(FailureReason(err)).Inc()
		return out
	}

	seen, err := im.Repo.ExistsFileName(ctx, filepath.Base(path))
	if err != nil {
		return fail(err)
	}
	if seen {
		out.Outcome = Skipped
		metrics.FilesSkippedTotal.Inc()
		return out
	}

	start := time.Now()
	res, err := im.parser().ParseFile(path)
	metrics.FileParseDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fail(err)
	}
	out.ActivityID = res.Activity.ID
	out.Points = len(res.Points)
	out.Warnings = res.Warnings

	created, err := im.Repo.Insert(ctx, &store.Record{Activity: res.Activity, Laps: res.Laps, Points: res.Points})
	if err != nil {
		return fail(fmt.Errorf("store %s: %w", res.Activity.ID, err))
	}
	if !created {
		out.Outcome = Skipped
		metrics.FilesSkippedTotal.Inc()
		return out
	}

	out.Outcome = Imported
	metrics.FilesParsedTotal.WithLabelValues(res.Activity.SourceFormat).Inc()
	metrics.PointsDecodedTotal.Add(float64(len(res.Points)))
	return out
}

func (im *Importer) logResult(res FileResult) {
	switch res.Outcome {
	case Failed:
		im.Logger.Error().Err(res.Err).Str("file", res.Path).Msg("import failed")
	case Skipped:
		im.Logger.Debug().Str("file", res.Path).Str("activity_id", res.ActivityID).Msg("already imported")
	default:
		ev := im.Logger.Info().Str("file", res.Path).Str("activity_id", res.ActivityID).Int("points", res.Points)
		if len(res.Warnings) > 0 {
			ev = ev.Strs("warnings", res.Warnings)
		}
		ev.Msg("imported")
	}
}

func (im *Importer) parser() *techjournal.Parser {
	if im.Parser == nil {
		im.Parser = techjournal.NewParser(nil)
	}
	return im.Parser
}

// FailureReason maps an import error to a short metric label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, canonical.ErrUnsupportedFormat):
		return "unsupported"
	case errors.Is(err, canonical.ErrMalformedLap):
		return "malformed_lap"
	case errors.Is(err, canonical.ErrNoLocationData):
		return "no_location"
	case errors.Is(err, canonical.ErrDecompression):
		return "decompression"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
