// Package fitstream walks the records of a FIT file in stream order.
//
// The high-level decoders in github.com/tormoder/fit group messages by type,
// which loses the interleaving of lap and record messages that lap
// assignment depends on. This walker keeps it.
package fitstream

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tormoder/fit"
)

var fitEpoch = time.Date(1989, 12, 31, 0, 0, 0, 0, time.UTC)

// Header is the decoded FIT file header.
type Header struct {
	Size            uint8
	ProtocolVersion uint8
	ProfileVersion  uint16
	DataSize        uint32
	DataType        string
}

// Summary describes a completed walk.
type Summary struct {
	Header         Header
	HeaderCRCValid bool
	FileCRCValid   bool
	Definitions    int
	DataMessages   int
	TrailingBytes  int
}

// Field is one decoded field of a data message. Value holds a scalar of the
// field's base Go type (uint8, int32, float64, string, ...), or []any for
// array fields. Invalid is set when every element carries the base type's
// invalid sentinel.
type Field struct {
	Num     uint8
	Size    uint8
	Value   any
	Invalid bool
}

// Message is a single data message.
type Message struct {
	Global fit.MesgNum
	Local  uint8
	Offset int64
	Fields []Field

	timestamp    uint32
	hasTimestamp bool
}

// Name returns the profile name of the message, e.g. "Record".
func (m Message) Name() string {
	name := m.Global.String()
	if strings.HasPrefix(name, "MesgNum(") {
		return fmt.Sprintf("global_%d", uint16(m.Global))
	}
	return name
}

// Field returns the field with the given number, if the message defines it.
func (m Message) Field(num uint8) (Field, bool) {
	for _, f := range m.Fields {
		if f.Num == num {
			return f, true
		}
	}
	return Field{}, false
}

// Int returns a defined, valid scalar integer field widened to int64.
func (m Message) Int(num uint8) (int64, bool) {
	f, ok := m.Field(num)
	if !ok || f.Invalid {
		return 0, false
	}
	return asInt64(f.Value)
}

// Scaled returns a defined, valid numeric field converted with the field's
// profile scale and offset.
func (m Message) Scaled(spec FieldSpec) (float64, bool) {
	f, ok := m.Field(spec.Num)
	if !ok || f.Invalid {
		return 0, false
	}
	var raw float64
	if v, ok := f.Value.(float64); ok {
		raw = v
	} else if v, ok := asInt64(f.Value); ok {
		raw = float64(v)
	} else {
		return 0, false
	}
	scale := spec.Scale
	if scale == 0 {
		scale = 1
	}
	out := raw/scale - spec.Offset
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, false
	}
	return out, true
}

// Time returns a date_time field as UTC.
func (m Message) Time(spec FieldSpec) (time.Time, bool) {
	v, ok := m.Int(spec.Num)
	if !ok || v < 0 {
		return time.Time{}, false
	}
	return ToTime(uint32(v)), true
}

// Timestamp returns the message timestamp, either from field 253 or from a
// compressed timestamp header.
func (m Message) Timestamp() (time.Time, bool) {
	if !m.hasTimestamp {
		return time.Time{}, false
	}
	return ToTime(m.timestamp), true
}

// ToTime converts seconds since the FIT epoch to UTC.
func ToTime(raw uint32) time.Time {
	return fitEpoch.Add(time.Duration(raw) * time.Second)
}

// FromTime converts a time to seconds since the FIT epoch.
func FromTime(t time.Time) uint32 {
	return uint32(t.Sub(fitEpoch) / time.Second)
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case uint8:
		return int64(x), true
	case int8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case int16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint64:
		if x > math.MaxInt64 {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}
