package techjournal

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/lucasjlepore/techjournal/canonical"
)

// Source describes the file a Decoded value came from.
type Source struct {
	Path   string
	Name   string
	Format string
	SHA256 string
}

var activityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/lucasjlepore/techjournal/activity"))

// Assemble derives the Activity summary from decoded laps and points.
//
// Totals are sums over laps that report the value. The start time is the
// earliest lap start, falling back to the earliest point timestamp for
// formats without laps. A file with no points fails with ErrNoLocationData.
func Assemble(src Source, d *canonical.Decoded) (*Result, error) {
	if d == nil || len(d.Points) == 0 {
		return nil, canonical.ErrNoLocationData
	}

	a := canonical.Activity{
		Sport:          d.Meta.Sport,
		SourceFilePath: src.Path,
		SourceFileName: src.Name,
		SourceFormat:   src.Format,
		SourceSHA256:   src.SHA256,
		LapCount:       len(d.Laps),
		PointCount:     len(d.Points),
	}

	var start *time.Time
	for _, lap := range d.Laps {
		if lap.TotalDistance != nil {
			a.TotalDistance += *lap.TotalDistance
		}
		if lap.TotalElapsedTime != nil {
			a.TotalElapsedTime += *lap.TotalElapsedTime
		}
		if start == nil || lap.StartTime.Before(*start) {
			start = canonical.Time(lap.StartTime)
		}
	}

	var sumLat, sumLon float64
	for _, p := range d.Points {
		sumLat += p.Latitude
		sumLon += p.Longitude
		if len(d.Laps) == 0 && p.Timestamp != nil && (start == nil || p.Timestamp.Before(*start)) {
			start = canonical.Time(*p.Timestamp)
		}
	}
	n := float64(len(d.Points))
	a.AvgLatitude = sumLat / n
	a.AvgLongitude = sumLon / n
	a.StartTime = start
	a.ID = ActivityID(src.SHA256, start, len(d.Points))

	return &Result{
		Activity: a,
		Laps:     d.Laps,
		Points:   d.Points,
		Warnings: d.Warnings,
	}, nil
}

// ActivityID derives a stable identifier from the source content hash, the
// normalized start time and the point count. The same bytes always produce
// the same id, whatever the file is called or where it lives.
func ActivityID(contentSHA256 string, start *time.Time, points int) string {
	key := contentSHA256 + "|"
	if start != nil {
		key += start.UTC().Format(time.RFC3339Nano)
	}
	key += "|" + strconv.Itoa(points)
	return uuid.NewSHA1(activityNamespace, []byte(key)).String()
}
