package techjournal

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/tormoder/fit"

	"github.com/lucasjlepore/techjournal/canonical"
	"github.com/lucasjlepore/techjournal/fitstream"
	"github.com/lucasjlepore/techjournal/internal/fittest"
)

const testTCX = `<?xml version="1.0" encoding="UTF-8"?>
<TrainingCenterDatabase xmlns="http://www.garmin.com/xmlschemas/TrainingCenterDatabase/v2">
  <Activities><Activity Sport="Running">
    <Lap StartTime="2014-04-04T18:25:11Z">
      <TotalTimeSeconds>610.0</TotalTimeSeconds>
      <DistanceMeters>2500.5</DistanceMeters>
      <Track><Trackpoint>
        <Time>2014-04-04T18:25:11Z</Time>
        <Position><LatitudeDegrees>12.0</LatitudeDegrees><LongitudeDegrees>22.0</LongitudeDegrees></Position>
        <HeartRateBpm><Value>150</Value></HeartRateBpm>
      </Trackpoint></Track>
    </Lap>
    <Lap StartTime="2014-04-04T18:20:11Z">
      <TotalTimeSeconds>300.0</TotalTimeSeconds>
      <DistanceMeters>1000.0</DistanceMeters>
      <Track><Trackpoint>
        <Time>2014-04-04T18:20:11Z</Time>
        <Position><LatitudeDegrees>10.0</LatitudeDegrees><LongitudeDegrees>20.0</LongitudeDegrees></Position>
        <HeartRateBpm><Value>130</Value></HeartRateBpm>
      </Trackpoint></Track>
    </Lap>
  </Activity></Activities>
</TrainingCenterDatabase>`

const testGPX = `<?xml version="1.0"?>
<gpx version="1.1" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg>
    <trkpt lat="10" lon="20"><time>2021-03-01T07:00:05Z</time></trkpt>
    <trkpt lat="12" lon="22"><time>2021-03-01T07:00:01Z</time></trkpt>
  </trkseg></trk>
</gpx>`

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func testFIT(t *testing.T) []byte {
	t.Helper()
	start := fitstream.FromTime(time.Date(2014, 4, 4, 18, 20, 11, 0, time.UTC))
	deg := func(v float64) int32 { return int32(math.Round(v * (1 << 31) / 180)) }
	return fittest.New().
		Define(0, fit.MesgNumRecord,
			fittest.Field{Num: 253, Base: fittest.Uint32},
			fittest.Field{Num: 0, Base: fittest.Sint32},
			fittest.Field{Num: 1, Base: fittest.Sint32},
			fittest.Field{Num: 3, Base: fittest.Uint8},
		).
		Define(1, fit.MesgNumLap,
			fittest.Field{Num: 2, Base: fittest.Uint32},
			fittest.Field{Num: 7, Base: fittest.Uint32},
			fittest.Field{Num: 9, Base: fittest.Uint32},
		).
		Define(2, fit.MesgNumSession, fittest.Field{Num: 5, Base: fittest.Enum}).
		Data(0, start, deg(10), deg(20), uint8(130)).
		Data(1, start, uint32(300000), uint32(100000)).
		Data(0, start+300, deg(12), deg(22), uint8(150)).
		Data(1, start+300, uint32(610000), uint32(250050)).
		Data(2, uint8(fit.SportRunning)).
		Bytes()
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseFileAllFormats(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"ride.fit":    testFIT(t),
		"ride.fit.gz": gzipped(t, string(testFIT(t))),
		"run.tcx.gz":  gzipped(t, testTCX),
		"walk.gpx.gz": gzipped(t, testGPX),
	}

	for name, data := range files {
		path := writeFile(t, dir, name, data)
		res, err := ParseFile(path)
		if err != nil {
			t.Fatalf("%s: ParseFile error: %v", name, err)
		}
		a := res.Activity
		if a.SourceFileName != name || a.SourceFilePath != path {
			t.Fatalf("%s: source = %q %q", name, a.SourceFileName, a.SourceFilePath)
		}
		if a.ID == "" || a.PointCount != len(res.Points) || a.LapCount != len(res.Laps) {
			t.Fatalf("%s: bad summary %+v", name, a)
		}
		if math.Abs(a.AvgLatitude-11) > 1e-6 || math.Abs(a.AvgLongitude-21) > 1e-6 {
			t.Fatalf("%s: average location = %v,%v; want 11,21", name, a.AvgLatitude, a.AvgLongitude)
		}
		if a.StartTime == nil {
			t.Fatalf("%s: missing start time", name)
		}

		if strings.HasPrefix(name, "walk") {
			if len(res.Laps) != 0 || a.TotalDistance != 0 || a.TotalElapsedTime != 0 {
				t.Fatalf("%s: gpx should have no laps or totals: %+v", name, a)
			}
			if !a.StartTime.Equal(time.Date(2021, 3, 1, 7, 0, 1, 0, time.UTC)) {
				t.Fatalf("%s: start = %v, want earliest point", name, a.StartTime)
			}
			continue
		}
		if a.TotalDistance != 3500.5 || a.TotalElapsedTime != 910 {
			t.Fatalf("%s: totals = %v m, %v s; want 3500.5 m, 910 s", name, a.TotalDistance, a.TotalElapsedTime)
		}
		if !a.StartTime.Equal(time.Date(2014, 4, 4, 18, 20, 11, 0, time.UTC)) {
			t.Fatalf("%s: start = %v, want earliest lap start", name, a.StartTime)
		}
		if a.Sport == nil || !strings.EqualFold(*a.Sport, "running") {
			t.Fatalf("%s: sport = %v", name, a.Sport)
		}
	}
}

func TestResultSchemaIsIdenticalAcrossFormats(t *testing.T) {
	inputs := map[string][]byte{
		"a.fit":    testFIT(t),
		"a.tcx.gz": gzipped(t, testTCX),
		"a.gpx.gz": gzipped(t, testGPX),
	}
	var reference map[string][]string
	for name, data := range inputs {
		res, err := ParseBytes(name, data)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		raw, err := json.Marshal(res)
		if err != nil {
			t.Fatalf("%s: marshal: %v", name, err)
		}
		var doc struct {
			Activity map[string]any   `json:"activity"`
			Points   []map[string]any `json:"points"`
		}
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatalf("%s: unmarshal: %v", name, err)
		}
		keys := map[string][]string{
			"activity": sortedKeys(doc.Activity),
			"point":    sortedKeys(doc.Points[0]),
		}
		if reference == nil {
			reference = keys
			continue
		}
		if !reflect.DeepEqual(reference, keys) {
			t.Fatalf("%s: field set %v differs from %v", name, keys, reference)
		}
	}
	for _, col := range []string{"latitude", "longitude", "lap", "altitude", "timestamp", "heart_rate", "cadence", "speed"} {
		found := false
		for _, k := range reference["point"] {
			if k == col {
				found = true
			}
		}
		if !found {
			t.Fatalf("point column %q missing from %v", col, reference["point"])
		}
	}
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestActivityIDIsDeterministic(t *testing.T) {
	data := gzipped(t, testTCX)
	first, err := ParseBytes("x.tcx.gz", data)
	if err != nil {
		t.Fatalf("first parse: %v", err)
	}
	second, err := ParseBytes("renamed.tcx.gz", data)
	if err != nil {
		t.Fatalf("second parse: %v", err)
	}
	if first.Activity.ID != second.Activity.ID {
		t.Fatalf("ids differ: %s vs %s", first.Activity.ID, second.Activity.ID)
	}

	other, err := ParseBytes("x.gpx.gz", gzipped(t, testGPX))
	if err != nil {
		t.Fatalf("gpx parse: %v", err)
	}
	if other.Activity.ID == first.Activity.ID {
		t.Fatal("different files produced the same id")
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := ParseBytes("a.kml", []byte("<kml/>")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := ParseBytes("a.gpx.gz", []byte("garbage")); !errors.Is(err, ErrDecompression) {
		t.Fatalf("expected ErrDecompression, got %v", err)
	}
	empty := `<gpx><trk><trkseg></trkseg></trk></gpx>`
	if _, err := Parse("a.gpx", strings.NewReader(empty)); !errors.Is(err, ErrNoLocationData) {
		t.Fatalf("expected ErrNoLocationData, got %v", err)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.fit")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAssembleAggregates(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC)
	d := &canonical.Decoded{
		Laps: []canonical.Lap{
			{Number: 1, StartTime: t0.Add(time.Hour), TotalDistance: canonical.Float(1000.0), TotalElapsedTime: canonical.Float(300.0)},
			{Number: 2, StartTime: t0, TotalDistance: canonical.Float(2500.5), TotalElapsedTime: canonical.Float(610.0)},
			{Number: 3, StartTime: t0.Add(2 * time.Hour)},
		},
		Points: []canonical.TrackPoint{
			{Latitude: 10, Longitude: 20, Lap: 1},
			{Latitude: 12, Longitude: 22, Lap: 2},
		},
	}
	res, err := Assemble(Source{Name: "x.fit", SHA256: "abc"}, d)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	a := res.Activity
	if a.TotalDistance != 3500.5 || a.TotalElapsedTime != 910.0 {
		t.Fatalf("totals = %v, %v", a.TotalDistance, a.TotalElapsedTime)
	}
	if a.AvgLatitude != 11 || a.AvgLongitude != 21 {
		t.Fatalf("average = %v, %v", a.AvgLatitude, a.AvgLongitude)
	}
	if !a.StartTime.Equal(t0) {
		t.Fatalf("start = %v, want %v", a.StartTime, t0)
	}

	if _, err := Assemble(Source{}, &canonical.Decoded{Laps: d.Laps}); !errors.Is(err, canonical.ErrNoLocationData) {
		t.Fatalf("expected ErrNoLocationData, got %v", err)
	}
}

func TestAssembleWithoutTimestamps(t *testing.T) {
	d := &canonical.Decoded{Points: []canonical.TrackPoint{{Latitude: 1, Longitude: 2}}}
	res, err := Assemble(Source{SHA256: "x"}, d)
	if err != nil {
		t.Fatalf("Assemble error: %v", err)
	}
	if res.Activity.StartTime != nil {
		t.Fatalf("start = %v, want absent", res.Activity.StartTime)
	}
	if res.Activity.ID != ActivityID("x", nil, 1) {
		t.Fatal("id does not match ActivityID")
	}
}
