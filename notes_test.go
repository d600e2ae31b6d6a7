package techjournal

import (
	"strings"
	"testing"
	"time"

	"github.com/lucasjlepore/techjournal/canonical"
)

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds float64
		light   bool
		want    string
	}{
		{0, false, "0h:0m:0s"},
		{59.9, false, "0h:0m:59s"},
		{3725, false, "1h:2m:5s"},
		{3725, true, "1h:2m"},
		{910, true, "0h:15m"},
		{-5, false, "0h:0m:0s"},
	}
	for _, tc := range cases {
		if got := FormatDuration(tc.seconds, tc.light); got != tc.want {
			t.Fatalf("FormatDuration(%v, %v) = %q, want %q", tc.seconds, tc.light, got, tc.want)
		}
	}
}

func TestFormatLength(t *testing.T) {
	cases := map[float64]string{
		0:      "0.0km",
		3500.5: "3.5km",
		10049:  "10.0km",
		42195:  "42.2km",
	}
	for in, want := range cases {
		if got := FormatLength(in); got != want {
			t.Fatalf("FormatLength(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildNotes(t *testing.T) {
	start := time.Date(2014, 4, 4, 18, 20, 11, 0, time.UTC)
	res := &Result{
		Activity: canonical.Activity{
			ID:               "abc",
			Sport:            canonical.String("running"),
			StartTime:        &start,
			TotalDistance:    3500.5,
			TotalElapsedTime: 910,
			SourceFileName:   "run.tcx.gz",
			LapCount:         1,
			PointCount:       2,
		},
		Laps: []canonical.Lap{{
			Number:           1,
			StartTime:        start,
			TotalDistance:    canonical.Float(3500.5),
			TotalElapsedTime: canonical.Float(910),
			AvgHeartRate:     canonical.Float(140),
			MaxHeartRate:     canonical.Float(160),
		}},
		Points: []canonical.TrackPoint{
			{Latitude: 1, Longitude: 2, HeartRate: canonical.Int(130)},
			{Latitude: 1, Longitude: 2, HeartRate: canonical.Int(150)},
		},
		Warnings: []string{"dropped 1 trackpoints without a position"},
	}

	notes := BuildNotes(res)
	for _, want := range []string{
		"Activity abc: running (run.tcx.gz)",
		"Start: 2014-04-04 18:20:11 UTC",
		"Duration 0h:15m:10s | Distance 3.5km | 1 laps | 2 points",
		"HR 140 avg bpm",
		"- #1 18:20:11 | 0h:15m:10s | 3.5km | HR 140/160",
		"- dropped 1 trackpoints without a position",
	} {
		if !strings.Contains(notes, want) {
			t.Fatalf("notes missing %q:\n%s", want, notes)
		}
	}
	if BuildNotes(nil) != "" {
		t.Fatal("expected empty notes for nil result")
	}
}
