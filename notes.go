package techjournal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BuildNotes renders a short plain-text summary of a parsed activity.
func BuildNotes(r *Result) string {
	if r == nil {
		return ""
	}
	a := r.Activity

	var b strings.Builder
	sport := "unknown sport"
	if a.Sport != nil {
		sport = *a.Sport
	}
	fmt.Fprintf(&b, "Activity %s: %s (%s)\n", a.ID, sport, a.SourceFileName)
	if a.StartTime != nil {
		fmt.Fprintf(&b, "Start: %s\n", a.StartTime.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(
		&b,
		"Duration %s | Distance %s | %d laps | %d points\n",
		FormatDuration(a.TotalElapsedTime, false),
		FormatLength(a.TotalDistance),
		a.LapCount,
		a.PointCount,
	)
	fmt.Fprintf(&b, "Centre %.5f, %.5f\n", a.AvgLatitude, a.AvgLongitude)

	if hr, ok := meanHeartRate(r); ok {
		fmt.Fprintf(&b, "HR %.0f avg bpm\n", hr)
	}

	if len(r.Laps) > 0 {
		b.WriteString("\nLaps\n")
		for _, lap := range r.Laps {
			fmt.Fprintf(&b, "- #%d %s", lap.Number, lap.StartTime.Format("15:04:05"))
			if lap.TotalElapsedTime != nil {
				fmt.Fprintf(&b, " | %s", FormatDuration(*lap.TotalElapsedTime, false))
			}
			if lap.TotalDistance != nil {
				fmt.Fprintf(&b, " | %s", FormatLength(*lap.TotalDistance))
			}
			if lap.AvgHeartRate != nil {
				fmt.Fprintf(&b, " | HR %.0f", *lap.AvgHeartRate)
				if lap.MaxHeartRate != nil {
					fmt.Fprintf(&b, "/%.0f", *lap.MaxHeartRate)
				}
			}
			b.WriteByte('\n')
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\nWarnings\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// FormatDuration renders seconds as "1h:2m:5s", or "1h:2m" when light is
// set. Fractional seconds are truncated.
func FormatDuration(seconds float64, light bool) string {
	total := int(seconds)
	if seconds < 0 || math.IsNaN(seconds) {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if light {
		return fmt.Sprintf("%dh:%dm", h, m)
	}
	return fmt.Sprintf("%dh:%dm:%ds", h, m, s)
}

// FormatLength renders meters as kilometres with one decimal, e.g. "3.5km".
func FormatLength(meters float64) string {
	km := math.Round(meters/100) / 10
	return strconv.FormatFloat(km, 'f', 1, 64) + "km"
}

func meanHeartRate(r *Result) (float64, bool) {
	var sum float64
	n := 0
	for _, p := range r.Points {
		if p.HeartRate != nil {
			sum += float64(*p.HeartRate)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}
