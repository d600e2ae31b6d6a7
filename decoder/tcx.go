package decoder

import (
	"fmt"
	"io"

	"github.com/beevik/etree"

	"github.com/lucasjlepore/techjournal/canonical"
)

// TCX decodes Training Center XML. Only the first activity in the file is
// read. Element names are matched without regard to namespace prefix.
type TCX struct{}

func (TCX) Format() string { return "tcx" }

func (TCX) Decode(r io.Reader) (*canonical.Decoded, error) {
	doc, err := readDocument(r, "tcx")
	if err != nil {
		return nil, err
	}

	out := &canonical.Decoded{}
	activities := doc.Root().FindElements("Activities/Activity")
	if len(activities) == 0 {
		out.Warnf("tcx file contains no activity")
		return out, nil
	}
	if len(activities) > 1 {
		out.Warnf("tcx file contains %d activities; only the first is read", len(activities))
	}
	activity := activities[0]

	if sport := activity.SelectAttrValue("Sport", ""); sport != "" {
		out.Meta.Sport = canonical.String(sport)
	}

	var drops tcxDrops
	for i, lapEl := range activity.SelectElements("Lap") {
		lap, err := tcxLap(lapEl, i+1, out)
		if err != nil {
			return nil, err
		}
		out.Laps = append(out.Laps, lap)

		for _, tp := range lapEl.FindElements("Track/Trackpoint") {
			if p, ok := tcxPoint(tp, lap.Number, out, &drops); ok {
				out.Points = append(out.Points, p)
			}
		}
	}
	drops.report(out)
	return out, nil
}

func tcxLap(el *etree.Element, number int, d *canonical.Decoded) (canonical.Lap, error) {
	rawStart := el.SelectAttrValue("StartTime", "")
	if rawStart == "" {
		return canonical.Lap{}, fmt.Errorf("%w: lap %d has no StartTime", canonical.ErrMalformedLap, number)
	}
	start, err := canonical.ParseTime(rawStart)
	if err != nil {
		return canonical.Lap{}, fmt.Errorf("%w: lap %d: %v", canonical.ErrMalformedLap, number, err)
	}

	lap := canonical.Lap{
		Number:           number,
		StartTime:        start,
		TotalDistance:    optionalFloat(el, "DistanceMeters", d),
		TotalElapsedTime: optionalFloat(el, "TotalTimeSeconds", d),
		MaxSpeed:         optionalFloat(el, "MaximumSpeed", d),
		AvgHeartRate:     optionalFloat(el, "AverageHeartRateBpm/Value", d),
	}

	// Devices sometimes write an empty MaximumHeartRateBpm block; that is
	// recorded as 0 rather than absent.
	if maxHR := el.SelectElement("MaximumHeartRateBpm"); maxHR != nil {
		if elementText(maxHR.SelectElement("Value")) == "" {
			lap.MaxHeartRate = canonical.Float(0)
			d.Warnf("lap %d: empty MaximumHeartRateBpm recorded as 0", number)
		} else {
			lap.MaxHeartRate = optionalFloat(maxHR, "Value", d)
		}
	}
	return lap, nil
}

type tcxDrops struct {
	noPosition int
	malformed  int
	noTime     int
}

func (t tcxDrops) report(d *canonical.Decoded) {
	if t.noPosition > 0 {
		d.Warnf("dropped %d trackpoints without a position", t.noPosition)
	}
	if t.malformed > 0 {
		d.Warnf("dropped %d trackpoints: %v", t.malformed, canonical.ErrMalformedPoint)
	}
	if t.noTime > 0 {
		d.Warnf("dropped %d trackpoints without a usable time", t.noTime)
	}
}

func tcxPoint(el *etree.Element, lapNo int, d *canonical.Decoded, drops *tcxDrops) (canonical.TrackPoint, bool) {
	pos := el.SelectElement("Position")
	if pos == nil {
		drops.noPosition++
		return canonical.TrackPoint{}, false
	}
	lat, latErr := canonical.ParseFloat(elementText(pos.SelectElement("LatitudeDegrees")))
	lon, lonErr := canonical.ParseFloat(elementText(pos.SelectElement("LongitudeDegrees")))
	if latErr != nil || lonErr != nil {
		drops.malformed++
		return canonical.TrackPoint{}, false
	}
	ts, err := canonical.ParseTime(elementText(el.SelectElement("Time")))
	if err != nil {
		drops.noTime++
		return canonical.TrackPoint{}, false
	}

	p := canonical.TrackPoint{
		Latitude:  lat,
		Longitude: lon,
		Lap:       lapNo,
		Timestamp: canonical.Time(ts),
		Altitude:  optionalFloat(el, "AltitudeMeters", d),
		HeartRate: optionalInt(el, "HeartRateBpm/Value", d),
		Cadence:   optionalInt(el, "Cadence", d),
		Speed:     optionalFloat(el, ".//Speed", d),
	}
	if p.Cadence == nil {
		p.Cadence = optionalInt(el, ".//RunCadence", d)
	}
	return p, true
}
