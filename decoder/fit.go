package decoder

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/tormoder/fit"

	"github.com/lucasjlepore/techjournal/canonical"
	"github.com/lucasjlepore/techjournal/fitstream"
)

// FIT decodes binary FIT activity files.
//
// Messages are read in stream order. A lap counter starts at 1 and is
// incremented after every lap message; each record is assigned the counter
// value current when it is read, so records written after the final lap
// message land in lap N+1.
type FIT struct{}

func (FIT) Format() string { return "fit" }

func (FIT) Decode(r io.Reader) (*canonical.Decoded, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read fit: %w", err)
	}

	var (
		out          = &canonical.Decoded{}
		lapNo        = 1
		noPosition   = 0
		sportSettled = false
	)
	summary, err := fitstream.Walk(data, func(m fitstream.Message) error {
		switch m.Global {
		case fitstream.MesgSession:
			if sportSettled {
				return nil
			}
			if v, ok := m.Int(fitstream.SessionSport.Num); ok {
				out.Meta.Sport = canonical.String(sportLabel(fit.Sport(v)))
				sportSettled = true
			}
		case fitstream.MesgLap:
			lap, err := fitLap(m, lapNo)
			if err != nil {
				return err
			}
			out.Laps = append(out.Laps, lap)
			lapNo++
		case fitstream.MesgRecord:
			p, ok := fitPoint(m, lapNo)
			if !ok {
				noPosition++
				return nil
			}
			out.Points = append(out.Points, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !summary.HeaderCRCValid {
		out.Warnf("fit header CRC mismatch")
	}
	if !summary.FileCRCValid {
		out.Warnf("fit file CRC mismatch")
	}
	if noPosition > 0 {
		out.Warnf("dropped %d records without a valid position", noPosition)
	}
	return out, nil
}

func fitLap(m fitstream.Message, number int) (canonical.Lap, error) {
	start, ok := m.Time(fitstream.LapStartTime)
	if !ok {
		return canonical.Lap{}, fmt.Errorf("%w: lap %d has no start_time", canonical.ErrMalformedLap, number)
	}

	lap := canonical.Lap{Number: number, StartTime: start}
	if v, ok := m.Scaled(fitstream.LapTotalDistance); ok {
		lap.TotalDistance = canonical.Float(v)
	}
	if v, ok := m.Scaled(fitstream.LapTotalElapsedTime); ok {
		lap.TotalElapsedTime = canonical.Float(v)
	}
	if v, ok := m.Scaled(fitstream.LapEnhancedMaxSpeed); ok {
		lap.MaxSpeed = canonical.Float(v)
	} else if v, ok := m.Scaled(fitstream.LapMaxSpeed); ok {
		lap.MaxSpeed = canonical.Float(v)
	}
	if v, ok := m.Scaled(fitstream.LapMaxHeartRate); ok {
		lap.MaxHeartRate = canonical.Float(v)
	}
	if v, ok := m.Scaled(fitstream.LapAvgHeartRate); ok {
		lap.AvgHeartRate = canonical.Float(v)
	}
	return lap, nil
}

func fitPoint(m fitstream.Message, lapNo int) (canonical.TrackPoint, bool) {
	lat, ok := m.Int(fitstream.RecordPositionLat.Num)
	if !ok {
		return canonical.TrackPoint{}, false
	}
	lon, ok := m.Int(fitstream.RecordPositionLong.Num)
	if !ok {
		return canonical.TrackPoint{}, false
	}

	p := canonical.TrackPoint{
		Latitude:  canonical.SemicirclesToDegrees(lat),
		Longitude: canonical.SemicirclesToDegrees(lon),
		Lap:       lapNo,
	}
	if ts, ok := m.Timestamp(); ok {
		p.Timestamp = canonical.Time(ts)
	}
	if v, ok := m.Scaled(fitstream.RecordEnhancedAltitude); ok {
		p.Altitude = canonical.Float(v)
	} else if v, ok := m.Scaled(fitstream.RecordAltitude); ok {
		p.Altitude = canonical.Float(v)
	}
	if v, ok := m.Int(fitstream.RecordHeartRate.Num); ok {
		p.HeartRate = canonical.Int(int(v))
	}
	if v, ok := m.Int(fitstream.RecordCadence.Num); ok {
		p.Cadence = canonical.Int(int(v))
	}
	if v, ok := m.Scaled(fitstream.RecordEnhancedSpeed); ok {
		p.Speed = canonical.Float(v)
	} else if v, ok := m.Scaled(fitstream.RecordSpeed); ok {
		p.Speed = canonical.Float(v)
	}
	return p, true
}

// sportLabel renders a FIT sport as a snake_case label, e.g.
// "cross_country_skiing".
func sportLabel(s fit.Sport) string {
	name := fmt.Sprint(s)
	if strings.HasPrefix(name, "Sport(") {
		return fmt.Sprintf("sport_%d", uint8(s))
	}
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
