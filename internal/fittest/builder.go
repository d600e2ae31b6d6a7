// Package fittest builds small FIT files byte by byte for tests. Messages are
// written exactly in the order they are added.
package fittest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/tormoder/fit"
	"github.com/tormoder/fit/dyncrc16"
)

// Base type bytes as they appear in definition messages.
const (
	Enum   uint8 = 0x00
	Uint8  uint8 = 0x02
	Uint16 uint8 = 0x84
	Sint32 uint8 = 0x85
	Uint32 uint8 = 0x86
)

// Invalid sentinels for the base types above.
const (
	InvalidUint8  uint8  = 0xFF
	InvalidUint16 uint16 = 0xFFFF
	InvalidSint32 int32  = 0x7FFFFFFF
	InvalidUint32 uint32 = 0xFFFFFFFF
)

// Field declares one field in a definition message.
type Field struct {
	Num  uint8
	Base uint8
}

// Builder accumulates FIT records.
type Builder struct {
	data bytes.Buffer
	defs map[uint8][]Field
}

func New() *Builder {
	return &Builder{defs: make(map[uint8][]Field)}
}

// Define writes a little-endian definition message for a local message type.
func (b *Builder) Define(local uint8, global fit.MesgNum, fields ...Field) *Builder {
	b.data.WriteByte(0x40 | (local & 0x0F))
	b.data.WriteByte(0) // reserved
	b.data.WriteByte(0) // little endian
	_ = binary.Write(&b.data, binary.LittleEndian, uint16(global))
	b.data.WriteByte(uint8(len(fields)))
	for _, f := range fields {
		b.data.WriteByte(f.Num)
		b.data.WriteByte(sizeOf(f.Base))
		b.data.WriteByte(f.Base)
	}
	b.defs[local] = fields
	return b
}

// Data writes a normal-header data message. Values follow the field order of
// the local definition and must match each field's base type.
func (b *Builder) Data(local uint8, values ...any) *Builder {
	b.data.WriteByte(local & 0x0F)
	b.writeValues(local, values)
	return b
}

// Compressed writes a data message with a compressed timestamp header.
func (b *Builder) Compressed(local uint8, timeOffset uint8, values ...any) *Builder {
	b.data.WriteByte(0x80 | (local&0x03)<<5 | (timeOffset & 0x1F))
	b.writeValues(local, values)
	return b
}

func (b *Builder) writeValues(local uint8, values []any) {
	fields, ok := b.defs[local]
	if !ok {
		panic(fmt.Sprintf("fittest: local message %d not defined", local))
	}
	if len(values) != len(fields) {
		panic(fmt.Sprintf("fittest: local message %d wants %d values, got %d", local, len(fields), len(values)))
	}
	for i, v := range values {
		if err := binary.Write(&b.data, binary.LittleEndian, v); err != nil {
			panic(fmt.Sprintf("fittest: field %d: %v", fields[i].Num, err))
		}
	}
}

// Bytes returns the complete file: 14-byte header with CRC, records and the
// trailing file CRC.
func (b *Builder) Bytes() []byte {
	header := make([]byte, 14)
	header[0] = 14
	header[1] = 0x20
	binary.LittleEndian.PutUint16(header[2:4], 2132)
	binary.LittleEndian.PutUint32(header[4:8], uint32(b.data.Len()))
	copy(header[8:12], ".FIT")
	binary.LittleEndian.PutUint16(header[12:14], dyncrc16.Checksum(header[:12]))

	out := make([]byte, 0, len(header)+b.data.Len()+2)
	out = append(out, header...)
	out = append(out, b.data.Bytes()...)
	return binary.LittleEndian.AppendUint16(out, dyncrc16.Checksum(out))
}

func sizeOf(base uint8) uint8 {
	switch base {
	case Enum, Uint8:
		return 1
	case Uint16:
		return 2
	case Sint32, Uint32:
		return 4
	default:
		panic(fmt.Sprintf("fittest: unsupported base type 0x%02X", base))
	}
}
