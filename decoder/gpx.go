package decoder

import (
	"io"

	"github.com/beevik/etree"

	"github.com/lucasjlepore/techjournal/canonical"
)

// GPX decodes GPS Exchange files. GPX has no laps: every trkpt of every
// segment of every track is flattened into one point sequence in document
// order, and points carry lap 0.
//
// Heart rate and cadence are read from the first extension block of a
// point (Garmin TrackPointExtension hr/cad). Anything unreadable there is
// treated as absent.
type GPX struct{}

func (GPX) Format() string { return "gpx" }

func (GPX) Decode(r io.Reader) (*canonical.Decoded, error) {
	doc, err := readDocument(r, "gpx")
	if err != nil {
		return nil, err
	}

	out := &canonical.Decoded{}
	tracks := doc.Root().SelectElements("trk")
	if len(tracks) > 0 {
		if sport := elementText(tracks[0].SelectElement("type")); sport != "" {
			out.Meta.Sport = canonical.String(sport)
		}
	}

	dropped := 0
	for _, trk := range tracks {
		for _, seg := range trk.SelectElements("trkseg") {
			for _, pt := range seg.SelectElements("trkpt") {
				p, ok := gpxPoint(pt, out)
				if !ok {
					dropped++
					continue
				}
				out.Points = append(out.Points, p)
			}
		}
	}
	if dropped > 0 {
		out.Warnf("dropped %d trkpt elements without usable lat/lon", dropped)
	}
	return out, nil
}

func gpxPoint(el *etree.Element, d *canonical.Decoded) (canonical.TrackPoint, bool) {
	lat, err := canonical.ParseFloat(el.SelectAttrValue("lat", ""))
	if err != nil {
		return canonical.TrackPoint{}, false
	}
	lon, err := canonical.ParseFloat(el.SelectAttrValue("lon", ""))
	if err != nil {
		return canonical.TrackPoint{}, false
	}

	p := canonical.TrackPoint{
		Latitude:  lat,
		Longitude: lon,
		Altitude:  optionalFloat(el, "ele", d),
	}
	if raw := elementText(el.SelectElement("time")); raw != "" {
		if ts, err := canonical.ParseTime(raw); err == nil {
			p.Timestamp = canonical.Time(ts)
		} else {
			d.Warnf("ignored trkpt time %q", raw)
		}
	}

	if ext := el.SelectElement("extensions"); ext != nil {
		if children := ext.ChildElements(); len(children) > 0 {
			p.HeartRate = extensionInt(children[0], "hr")
			p.Cadence = extensionInt(children[0], "cad")
		}
	}
	return p, true
}

func extensionInt(block *etree.Element, name string) *int {
	el := block.FindElement(".//" + name)
	if el == nil {
		return nil
	}
	v, err := canonical.ParseInt(elementText(el))
	if err != nil {
		return nil
	}
	return canonical.Int(v)
}
