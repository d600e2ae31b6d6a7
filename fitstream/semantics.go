package fitstream

import "github.com/tormoder/fit"

// FieldSpec names a profile field and its scale/offset. Stored values are
// converted with raw/Scale - Offset.
type FieldSpec struct {
	Num    uint8
	Name   string
	Scale  float64
	Offset float64
}

var (
	FileIDType = FieldSpec{Num: 0, Name: "type"}

	SessionStartTime = FieldSpec{Num: 2, Name: "start_time"}
	SessionSport     = FieldSpec{Num: 5, Name: "sport"}
	SessionSubSport  = FieldSpec{Num: 6, Name: "sub_sport"}

	LapStartTime        = FieldSpec{Num: 2, Name: "start_time"}
	LapTotalElapsedTime = FieldSpec{Num: 7, Name: "total_elapsed_time", Scale: 1000}
	LapTotalDistance    = FieldSpec{Num: 9, Name: "total_distance", Scale: 100}
	LapMaxSpeed         = FieldSpec{Num: 14, Name: "max_speed", Scale: 1000}
	LapAvgHeartRate     = FieldSpec{Num: 15, Name: "avg_heart_rate"}
	LapMaxHeartRate     = FieldSpec{Num: 16, Name: "max_heart_rate"}
	LapEnhancedMaxSpeed = FieldSpec{Num: 111, Name: "enhanced_max_speed", Scale: 1000}

	RecordPositionLat      = FieldSpec{Num: 0, Name: "position_lat"}
	RecordPositionLong     = FieldSpec{Num: 1, Name: "position_long"}
	RecordAltitude         = FieldSpec{Num: 2, Name: "altitude", Scale: 5, Offset: 500}
	RecordHeartRate        = FieldSpec{Num: 3, Name: "heart_rate"}
	RecordCadence          = FieldSpec{Num: 4, Name: "cadence"}
	RecordDistance         = FieldSpec{Num: 5, Name: "distance", Scale: 100}
	RecordSpeed            = FieldSpec{Num: 6, Name: "speed", Scale: 1000}
	RecordEnhancedSpeed    = FieldSpec{Num: 73, Name: "enhanced_speed", Scale: 1000}
	RecordEnhancedAltitude = FieldSpec{Num: 78, Name: "enhanced_altitude", Scale: 5, Offset: 500}

	Timestamp = FieldSpec{Num: timestampFieldNum, Name: "timestamp"}
)

// Message numbers used by the activity decoder.
const (
	MesgFileID  = fit.MesgNumFileId
	MesgSession = fit.MesgNumSession
	MesgLap     = fit.MesgNumLap
	MesgRecord  = fit.MesgNumRecord
)
