package export

import (
	"github.com/lucasjlepore/techjournal/canonical"
)

// Position is a GeoJSON coordinate pair, longitude first.
type Position [2]float64

type Geometry struct {
	Type        string     `json:"type"`
	Coordinates []Position `json:"coordinates"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// TrackGeoJSON renders the points as one LineString in traversal order, with
// the map centre and summary values as properties. It is the payload handed
// to map renderers.
func TrackGeoJSON(a canonical.Activity, points []canonical.TrackPoint) *FeatureCollection {
	coords := make([]Position, 0, len(points))
	for _, p := range points {
		coords = append(coords, Position{p.Longitude, p.Latitude})
	}

	props := map[string]any{
		"activity_id":        a.ID,
		"center":             Position{a.AvgLongitude, a.AvgLatitude},
		"total_distance":     a.TotalDistance,
		"total_elapsed_time": a.TotalElapsedTime,
		"source_file_name":   a.SourceFileName,
	}
	if a.Sport != nil {
		props["sport"] = *a.Sport
	}
	if a.StartTime != nil {
		props["start_time"] = a.StartTime.UTC()
	}

	return &FeatureCollection{
		Type: "FeatureCollection",
		Features: []Feature{{
			Type:       "Feature",
			Geometry:   Geometry{Type: "LineString", Coordinates: coords},
			Properties: props,
		}},
	}
}
