package fitstream

import (
	"fmt"
	"time"

	"github.com/tormoder/fit"
)

// Overview is a file-level description of a FIT file: what kind of file it
// is, the session it records and how many messages of each kind it holds.
type Overview struct {
	Summary  *Summary
	FileType string
	Sport    string
	SubSport string
	// Session start and end, from the first session message.
	Start *time.Time
	End   *time.Time
	// Distance is the last cumulative distance reported by a record, in
	// meters.
	Distance *float64
	Counts   map[string]int
}

// Describe walks data once and collects an Overview.
func Describe(data []byte) (*Overview, error) {
	ov := &Overview{Counts: make(map[string]int)}
	sessionSeen := false

	summary, err := Walk(data, func(m Message) error {
		ov.Counts[m.Name()]++
		switch m.Global {
		case MesgFileID:
			if v, ok := m.Int(FileIDType.Num); ok && ov.FileType == "" {
				ov.FileType = fit.FileType(v).String()
			}
		case MesgSession:
			if sessionSeen {
				return nil
			}
			sessionSeen = true
			if v, ok := m.Int(SessionSport.Num); ok {
				ov.Sport = fit.Sport(v).String()
			}
			if v, ok := m.Int(SessionSubSport.Num); ok {
				ov.SubSport = fit.SubSport(v).String()
			}
			if t, ok := m.Time(SessionStartTime); ok {
				ov.Start = &t
			}
			if t, ok := m.Time(Timestamp); ok {
				ov.End = &t
			}
		case MesgRecord:
			if v, ok := m.Scaled(RecordDistance); ok {
				ov.Distance = &v
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("describe fit: %w", err)
	}
	ov.Summary = summary
	return ov, nil
}
