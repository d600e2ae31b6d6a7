// Package canonical holds the format-independent activity model that every
// decoder produces, plus the unit helpers shared by the decoders.
package canonical

import (
	"fmt"
	"time"
)

// TrackPoint is one geolocated sample. Latitude and Longitude are always
// present; every other field is nil when the source did not measure it.
//
// Lap is the 1-based number of the lap the point belongs to, or 0 when the
// source format has no lap concept.
type TrackPoint struct {
	Latitude  float64    `json:"latitude"`
	Longitude float64    `json:"longitude"`
	Lap       int        `json:"lap"`
	Altitude  *float64   `json:"altitude"`
	Timestamp *time.Time `json:"timestamp"`
	HeartRate *int       `json:"heart_rate"`
	Cadence   *int       `json:"cadence"`
	Speed     *float64   `json:"speed"`
}

// Lap is a contiguous segment of an activity as recorded by the device.
type Lap struct {
	Number           int       `json:"number"`
	StartTime        time.Time `json:"start_time"`
	TotalDistance    *float64  `json:"total_distance"`
	TotalElapsedTime *float64  `json:"total_elapsed_time"`
	MaxSpeed         *float64  `json:"max_speed"`
	MaxHeartRate     *float64  `json:"max_heart_rate"`
	AvgHeartRate     *float64  `json:"avg_heart_rate"`
}

// Activity is the summary of one source file.
type Activity struct {
	ID               string     `json:"activity_id"`
	Sport            *string    `json:"sport"`
	StartTime        *time.Time `json:"start_time"`
	TotalDistance    float64    `json:"total_distance"`
	TotalElapsedTime float64    `json:"total_elapsed_time"`
	AvgLatitude      float64    `json:"avg_latitude"`
	AvgLongitude     float64    `json:"avg_longitude"`
	SourceFilePath   string     `json:"source_file_path"`
	SourceFileName   string     `json:"source_file_name"`
	SourceFormat     string     `json:"source_format"`
	SourceSHA256     string     `json:"source_sha256"`
	LapCount         int        `json:"lap_count"`
	PointCount       int        `json:"point_count"`
}

// Meta carries activity-level values read from the file itself.
type Meta struct {
	Sport *string `json:"sport"`
}

// Decoded is the output of a single decoder run, before assembly.
type Decoded struct {
	Meta     Meta         `json:"meta"`
	Laps     []Lap        `json:"laps"`
	Points   []TrackPoint `json:"points"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Warnf appends a formatted warning.
func (d *Decoded) Warnf(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}
