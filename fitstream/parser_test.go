package fitstream

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/lucasjlepore/techjournal/internal/fittest"
	"github.com/tormoder/fit"
	"github.com/tormoder/fit/dyncrc16"
)

func TestWalkVisitsMessagesInStreamOrder(t *testing.T) {
	start := time.Date(2014, 4, 4, 18, 20, 11, 0, time.UTC)
	ts := FromTime(start)

	data := fittest.New().
		Define(0, MesgRecord,
			fittest.Field{Num: 253, Base: fittest.Uint32},
			fittest.Field{Num: 0, Base: fittest.Sint32},
			fittest.Field{Num: 1, Base: fittest.Sint32},
			fittest.Field{Num: 3, Base: fittest.Uint8},
		).
		Define(1, MesgLap,
			fittest.Field{Num: 2, Base: fittest.Uint32},
			fittest.Field{Num: 7, Base: fittest.Uint32},
		).
		Data(0, ts, int32(1<<30), int32(-(1 << 29)), uint8(140)).
		Data(1, ts, uint32(300000)).
		Data(0, ts+1, fittest.InvalidSint32, int32(0), fittest.InvalidUint8).
		Bytes()

	var seen []string
	summary, err := Walk(data, func(m Message) error {
		seen = append(seen, m.Name())
		return nil
	})
	if err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	want := []string{"Record", "Lap", "Record"}
	if len(seen) != len(want) {
		t.Fatalf("messages = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("messages = %v, want %v", seen, want)
		}
	}
	if summary.Definitions != 2 || summary.DataMessages != 3 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if !summary.HeaderCRCValid || !summary.FileCRCValid {
		t.Fatalf("expected valid CRCs: %+v", summary)
	}
}

func TestMessageAccessors(t *testing.T) {
	start := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	data := fittest.New().
		Define(0, MesgRecord,
			fittest.Field{Num: 253, Base: fittest.Uint32},
			fittest.Field{Num: 0, Base: fittest.Sint32},
			fittest.Field{Num: 2, Base: fittest.Uint16},
			fittest.Field{Num: 3, Base: fittest.Uint8},
			fittest.Field{Num: 6, Base: fittest.Uint16},
		).
		Data(0, FromTime(start), fittest.InvalidSint32, uint16(3000), uint8(151), uint16(2750)).
		Bytes()

	var msgs []Message
	if _, err := Walk(data, func(m Message) error {
		msgs = append(msgs, m)
		return nil
	}); err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	m := msgs[0]

	if _, ok := m.Int(RecordPositionLat.Num); ok {
		t.Fatal("expected invalid latitude to be reported as absent")
	}
	if _, ok := m.Int(RecordPositionLong.Num); ok {
		t.Fatal("expected undefined longitude to be reported as absent")
	}
	if alt, ok := m.Scaled(RecordAltitude); !ok || alt != 100 {
		t.Fatalf("altitude = %v, %v; want 100", alt, ok)
	}
	if spd, ok := m.Scaled(RecordSpeed); !ok || spd != 2.75 {
		t.Fatalf("speed = %v, %v; want 2.75", spd, ok)
	}
	if hr, ok := m.Int(RecordHeartRate.Num); !ok || hr != 151 {
		t.Fatalf("heart rate = %v, %v; want 151", hr, ok)
	}
	if got, ok := m.Timestamp(); !ok || !got.Equal(start) {
		t.Fatalf("timestamp = %v, %v; want %v", got, ok, start)
	}
}

func TestWalkCompressedTimestamps(t *testing.T) {
	base := FromTime(time.Date(2021, 5, 1, 8, 0, 0, 0, time.UTC))
	base -= base % 32 // keep the 5-bit rollover arithmetic obvious

	data := fittest.New().
		Define(0, MesgRecord,
			fittest.Field{Num: 253, Base: fittest.Uint32},
			fittest.Field{Num: 3, Base: fittest.Uint8},
		).
		Define(1, MesgRecord,
			fittest.Field{Num: 3, Base: fittest.Uint8},
		).
		Data(0, base+30, uint8(120)).
		Compressed(1, 2, uint8(121)).
		Bytes()

	var stamps []time.Time
	if _, err := Walk(data, func(m Message) error {
		ts, ok := m.Timestamp()
		if !ok {
			t.Fatalf("message at %d has no timestamp", m.Offset)
		}
		stamps = append(stamps, ts)
		return nil
	}); err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if len(stamps) != 2 {
		t.Fatalf("got %d messages, want 2", len(stamps))
	}
	if d := stamps[1].Sub(stamps[0]); d != 4*time.Second {
		t.Fatalf("compressed timestamp delta = %v, want 4s", d)
	}
}

func TestWalkReportsBadFileCRC(t *testing.T) {
	data := fittest.New().
		Define(0, MesgRecord, fittest.Field{Num: 3, Base: fittest.Uint8}).
		Data(0, uint8(100)).
		Bytes()
	binary.LittleEndian.PutUint16(data[len(data)-2:], dyncrc16.Checksum(data[:len(data)-2])+1)

	summary, err := Walk(data, nil)
	if err != nil {
		t.Fatalf("Walk error: %v", err)
	}
	if summary.FileCRCValid {
		t.Fatal("expected file CRC mismatch")
	}
}

func TestWalkRejectsGarbage(t *testing.T) {
	cases := map[string][]byte{
		"short":     {14, 0x20},
		"bad magic": append([]byte{12, 0x10, 0, 0, 0, 0, 0, 0, 'X', 'F', 'I', 'T'}, 0, 0),
	}
	for name, data := range cases {
		if _, err := Walk(data, nil); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	truncated := fittest.New().
		Define(0, MesgRecord, fittest.Field{Num: 3, Base: fittest.Uint8}).
		Data(0, uint8(100)).
		Bytes()
	if _, err := Walk(truncated[:len(truncated)-4], nil); err == nil {
		t.Fatal("expected error for truncated file")
	}
}

func TestWalkMissingDefinition(t *testing.T) {
	data := fittest.New().
		Define(0, MesgRecord, fittest.Field{Num: 3, Base: fittest.Uint8}).
		Data(0, uint8(100)).
		Bytes()
	// Point the data message at local type 5, which was never defined.
	data[14+9] = 0x05
	binary.LittleEndian.PutUint16(data[len(data)-2:], dyncrc16.Checksum(data[:len(data)-2]))
	if _, err := Walk(data, nil); err == nil {
		t.Fatal("expected missing definition error")
	}
}

func TestDescribe(t *testing.T) {
	start := time.Date(2021, 6, 5, 8, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	data := fittest.New().
		Define(0, MesgFileID, fittest.Field{Num: 0, Base: fittest.Enum}).
		Data(0, uint8(fit.FileTypeActivity)).
		Define(1, MesgRecord,
			fittest.Field{Num: 253, Base: fittest.Uint32},
			fittest.Field{Num: 5, Base: fittest.Uint32},
		).
		Data(1, FromTime(start), uint32(50000)).
		Data(1, FromTime(end), uint32(1234556)).
		Define(2, MesgSession,
			fittest.Field{Num: 253, Base: fittest.Uint32},
			fittest.Field{Num: 2, Base: fittest.Uint32},
			fittest.Field{Num: 5, Base: fittest.Enum},
			fittest.Field{Num: 6, Base: fittest.Enum},
		).
		Data(2, FromTime(end), FromTime(start), uint8(fit.SportRunning), uint8(fit.SubSportTrail)).
		Bytes()

	ov, err := Describe(data)
	if err != nil {
		t.Fatalf("Describe error: %v", err)
	}
	if ov.FileType != fit.FileTypeActivity.String() {
		t.Fatalf("file type = %q", ov.FileType)
	}
	if ov.Sport != fit.SportRunning.String() || ov.SubSport != fit.SubSportTrail.String() {
		t.Fatalf("sport = %q/%q", ov.Sport, ov.SubSport)
	}
	if ov.Start == nil || !ov.Start.Equal(start) || ov.End == nil || !ov.End.Equal(end) {
		t.Fatalf("session window = %v..%v, want %v..%v", ov.Start, ov.End, start, end)
	}
	if ov.Distance == nil || math.Abs(*ov.Distance-12345.56) > 1e-9 {
		t.Fatalf("distance = %v, want 12345.56", ov.Distance)
	}
	if ov.Counts[fit.MesgNumRecord.String()] != 2 || ov.Counts[fit.MesgNumSession.String()] != 1 || ov.Counts[fit.MesgNumFileId.String()] != 1 {
		t.Fatalf("counts = %v", ov.Counts)
	}
	if ov.Summary == nil || ov.Summary.DataMessages != 4 {
		t.Fatalf("summary = %+v", ov.Summary)
	}

	if _, err := Describe([]byte("nope")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}
