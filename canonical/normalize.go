package canonical

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// semicirclesPerDegree is 2^31 / 180.
const semicirclesPerDegree = 2147483648.0 / 180.0

// SemicirclesToDegrees converts a FIT semicircle angle to decimal degrees.
func SemicirclesToDegrees(v int64) float64 {
	return float64(v) / semicirclesPerDegree
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime parses an ISO-8601 timestamp. Values without a zone are read as
// UTC. The result is always in UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseFloat parses trimmed decimal text.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if !isFinite(v) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}

// ParseInt parses trimmed integer text. Decimal text such as "142.0" is
// accepted and rounded.
func ParseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := ParseFloat(s)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

func Float(v float64) *float64 {
	out := v
	return &out
}

func Int(v int) *int {
	out := v
	return &out
}

func Time(v time.Time) *time.Time {
	out := v.UTC()
	return &out
}

func String(v string) *string {
	out := v
	return &out
}

// Normalize enforces the canonical invariants on a decoder's output in
// place: UTC timestamps, finite in-range coordinates, finite optional
// values, laps ordered by number and a trimmed lower-case sport label.
func Normalize(d *Decoded) {
	if d == nil {
		return
	}

	if d.Meta.Sport != nil {
		sport := strings.ToLower(strings.TrimSpace(*d.Meta.Sport))
		if sport == "" {
			d.Meta.Sport = nil
		} else {
			d.Meta.Sport = &sport
		}
	}

	for i := range d.Laps {
		lap := &d.Laps[i]
		lap.StartTime = lap.StartTime.UTC()
		lap.TotalDistance = finiteOrNil(lap.TotalDistance)
		lap.TotalElapsedTime = finiteOrNil(lap.TotalElapsedTime)
		lap.MaxSpeed = finiteOrNil(lap.MaxSpeed)
		lap.MaxHeartRate = finiteOrNil(lap.MaxHeartRate)
		lap.AvgHeartRate = finiteOrNil(lap.AvgHeartRate)
	}
	sort.SliceStable(d.Laps, func(i, j int) bool {
		return d.Laps[i].Number < d.Laps[j].Number
	})

	kept := d.Points[:0]
	dropped := 0
	for _, p := range d.Points {
		if !validCoordinate(p.Latitude, 90) || !validCoordinate(p.Longitude, 180) {
			dropped++
			continue
		}
		if p.Timestamp != nil {
			p.Timestamp = Time(*p.Timestamp)
		}
		p.Altitude = finiteOrNil(p.Altitude)
		p.Speed = finiteOrNil(p.Speed)
		kept = append(kept, p)
	}
	d.Points = kept
	if dropped > 0 {
		d.Warnf("dropped %d points with out-of-range coordinates", dropped)
	}
}

func validCoordinate(v, limit float64) bool {
	return isFinite(v) && math.Abs(v) <= limit
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || !isFinite(*v) {
		return nil
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
