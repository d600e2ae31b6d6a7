package fitstream

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tormoder/fit"
	"github.com/tormoder/fit/dyncrc16"
)

const (
	compressedHeaderMask       = 0x80
	compressedLocalMesgNumMask = 0x60
	compressedTimeMask         = 0x1F
	mesgDefinitionMask         = 0x40
	devDataMask                = 0x20
	localMesgNumMask           = 0x0F

	headerSizeNoCRC = 12
	headerSizeCRC   = 14

	timestampFieldNum = 253
)

type baseType uint8

const (
	baseEnum    baseType = 0x00
	baseSint8   baseType = 0x01
	baseUint8   baseType = 0x02
	baseSint16  baseType = 0x83
	baseUint16  baseType = 0x84
	baseSint32  baseType = 0x85
	baseUint32  baseType = 0x86
	baseString  baseType = 0x07
	baseFloat32 baseType = 0x88
	baseFloat64 baseType = 0x89
	baseUint8z  baseType = 0x0A
	baseUint16z baseType = 0x8B
	baseUint32z baseType = 0x8C
	baseByte    baseType = 0x0D
	baseSint64  baseType = 0x8E
	baseUint64  baseType = 0x8F
	baseUint64z baseType = 0x90
)

var baseSizes = map[baseType]int{
	baseEnum:    1,
	baseSint8:   1,
	baseUint8:   1,
	baseSint16:  2,
	baseUint16:  2,
	baseSint32:  4,
	baseUint32:  4,
	baseString:  1,
	baseFloat32: 4,
	baseFloat64: 8,
	baseUint8z:  1,
	baseUint16z: 2,
	baseUint32z: 4,
	baseByte:    1,
	baseSint64:  8,
	baseUint64:  8,
	baseUint64z: 8,
}

type fieldDef struct {
	num  uint8
	size uint8
	base baseType
}

type localDefinition struct {
	global    fit.MesgNum
	arch      binary.ByteOrder
	fields    []fieldDef
	devFields []uint8 // sizes only; developer data is skipped
}

type walker struct {
	data           []byte
	dataOffset     int
	definitions    map[uint8]localDefinition
	lastTimestamp  uint32
	lastTimeOffset int32
	summary        *Summary
	fn             func(Message) error
}

// Walk decodes a complete FIT file held in memory and calls fn for every data
// message in stream order. Returning an error from fn stops the walk.
//
// CRC mismatches do not fail the walk; they are reported in the Summary.
func Walk(data []byte, fn func(Message) error) (*Summary, error) {
	if len(data) < headerSizeNoCRC+2 {
		return nil, fmt.Errorf("fit file too short: %d bytes", len(data))
	}

	header, headerCRCValid, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	dataStart := int(header.Size)
	dataEnd := dataStart + int(header.DataSize)
	if len(data) < dataEnd+2 {
		return nil, fmt.Errorf("fit file truncated: have %d bytes, need at least %d", len(data), dataEnd+2)
	}

	stored := binary.LittleEndian.Uint16(data[dataEnd : dataEnd+2])
	summary := &Summary{
		Header:         header,
		HeaderCRCValid: headerCRCValid,
		FileCRCValid:   stored == dyncrc16.Checksum(data[:dataEnd]),
		TrailingBytes:  len(data) - dataEnd - 2,
	}

	w := &walker{
		data:        data[dataStart:dataEnd],
		dataOffset:  dataStart,
		definitions: make(map[uint8]localDefinition),
		summary:     summary,
		fn:          fn,
	}
	if err := w.run(); err != nil {
		return summary, err
	}
	return summary, nil
}

func parseHeader(data []byte) (Header, bool, error) {
	size := data[0]
	if size != headerSizeNoCRC && size != headerSizeCRC {
		return Header{}, false, fmt.Errorf("invalid fit header size: %d", size)
	}
	if len(data) < int(size) {
		return Header{}, false, fmt.Errorf("truncated fit header: need %d bytes", size)
	}

	h := Header{
		Size:            size,
		ProtocolVersion: data[1],
		ProfileVersion:  binary.LittleEndian.Uint16(data[2:4]),
		DataSize:        binary.LittleEndian.Uint32(data[4:8]),
		DataType:        string(data[8:12]),
	}
	if h.DataType != ".FIT" {
		return Header{}, false, fmt.Errorf("invalid fit data type in header: %q", h.DataType)
	}

	valid := true
	if size == headerSizeCRC {
		// A stored header CRC of zero means the writer skipped it.
		if stored := binary.LittleEndian.Uint16(data[12:14]); stored != 0 {
			valid = stored == dyncrc16.Checksum(data[:12])
		}
	}
	return h, valid, nil
}

func (w *walker) run() error {
	pos := 0
	for pos < len(w.data) {
		start := pos
		headerByte := w.data[pos]
		pos++

		var err error
		switch {
		case headerByte&compressedHeaderMask == compressedHeaderMask:
			local := (headerByte & compressedLocalMesgNumMask) >> 5
			pos, err = w.dataRecord(start, pos, headerByte, local, true)
		case headerByte&mesgDefinitionMask == mesgDefinitionMask:
			pos, err = w.definitionRecord(start, pos, headerByte)
		default:
			pos, err = w.dataRecord(start, pos, headerByte, headerByte&localMesgNumMask, false)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (w *walker) reader(start int, pos *int, kind string) func(n int) ([]byte, error) {
	return func(n int) ([]byte, error) {
		if *pos+n > len(w.data) {
			return nil, fmt.Errorf("%s record truncated at byte %d", kind, w.dataOffset+start)
		}
		out := w.data[*pos : *pos+n]
		*pos += n
		return out, nil
	}
}

func (w *walker) definitionRecord(start, pos int, headerByte uint8) (int, error) {
	read := w.reader(start, &pos, "definition")

	fixed, err := read(5) // reserved, architecture, global message number, field count
	if err != nil {
		return 0, err
	}
	var arch binary.ByteOrder
	switch fixed[1] {
	case 0:
		arch = binary.LittleEndian
	case 1:
		arch = binary.BigEndian
	default:
		return 0, fmt.Errorf("invalid architecture byte %d at byte %d", fixed[1], w.dataOffset+start)
	}

	def := localDefinition{
		global: fit.MesgNum(arch.Uint16(fixed[2:4])),
		arch:   arch,
		fields: make([]fieldDef, 0, fixed[4]),
	}
	for i := 0; i < int(fixed[4]); i++ {
		raw, err := read(3)
		if err != nil {
			return 0, err
		}
		def.fields = append(def.fields, fieldDef{
			num:  raw[0],
			size: raw[1],
			base: decompressBaseType(raw[2]),
		})
	}

	if headerByte&devDataMask == devDataMask {
		countRaw, err := read(1)
		if err != nil {
			return 0, err
		}
		for i := 0; i < int(countRaw[0]); i++ {
			raw, err := read(3)
			if err != nil {
				return 0, err
			}
			def.devFields = append(def.devFields, raw[1])
		}
	}

	w.definitions[headerByte&localMesgNumMask] = def
	w.summary.Definitions++
	return pos, nil
}

func (w *walker) dataRecord(start, pos int, headerByte, local uint8, compressed bool) (int, error) {
	def, ok := w.definitions[local]
	if !ok {
		return 0, fmt.Errorf("missing definition for data message local=%d at byte %d", local, w.dataOffset+start)
	}
	read := w.reader(start, &pos, "data")

	msg := Message{
		Global: def.global,
		Local:  local,
		Offset: int64(w.dataOffset + start),
		Fields: make([]Field, 0, len(def.fields)),
	}

	if compressed && w.lastTimestamp != 0 {
		offset := int32(headerByte & compressedTimeMask)
		w.lastTimestamp += uint32((offset - w.lastTimeOffset) & int32(compressedTimeMask))
		w.lastTimeOffset = offset
		msg.timestamp = w.lastTimestamp
		msg.hasTimestamp = true
	}

	for _, fd := range def.fields {
		raw, err := read(int(fd.size))
		if err != nil {
			return 0, err
		}
		field := decodeField(raw, fd, def.arch)
		if fd.num == timestampFieldNum && !field.Invalid {
			if ts, ok := field.Value.(uint32); ok {
				w.lastTimestamp = ts
				w.lastTimeOffset = int32(ts & compressedTimeMask)
				msg.timestamp = ts
				msg.hasTimestamp = true
			}
		}
		msg.Fields = append(msg.Fields, field)
	}

	for _, size := range def.devFields {
		if _, err := read(int(size)); err != nil {
			return 0, err
		}
	}

	w.summary.DataMessages++
	if w.fn != nil {
		if err := w.fn(msg); err != nil {
			return 0, err
		}
	}
	return pos, nil
}

func decodeField(raw []byte, def fieldDef, arch binary.ByteOrder) Field {
	field := Field{Num: def.num, Size: def.size}

	size, known := baseSizes[def.base]
	switch {
	case !known:
		field.Value = append([]byte(nil), raw...)
		return field
	case def.base == baseString:
		field.Value = nullTerminated(raw)
		field.Invalid = field.Value == ""
		return field
	case def.base == baseByte:
		field.Value = append([]byte(nil), raw...)
		field.Invalid = allBytes(raw, 0xFF)
		return field
	case len(raw)%size != 0:
		field.Value = append([]byte(nil), raw...)
		field.Invalid = true
		return field
	}

	count := len(raw) / size
	values := make([]any, 0, count)
	invalid := 0
	for i := 0; i < count; i++ {
		v, bad := decodeSingleValue(raw[i*size:(i+1)*size], def.base, arch)
		values = append(values, v)
		if bad {
			invalid++
		}
	}
	field.Invalid = invalid == count
	if count == 1 {
		field.Value = values[0]
	} else {
		field.Value = values
	}
	return field
}

func decodeSingleValue(raw []byte, bt baseType, arch binary.ByteOrder) (any, bool) {
	switch bt {
	case baseEnum, baseUint8:
		return raw[0], raw[0] == 0xFF
	case baseSint8:
		v := int8(raw[0])
		return v, v == 0x7F
	case baseSint16:
		v := int16(arch.Uint16(raw))
		return v, v == 0x7FFF
	case baseUint16:
		v := arch.Uint16(raw)
		return v, v == 0xFFFF
	case baseSint32:
		v := int32(arch.Uint32(raw))
		return v, v == 0x7FFFFFFF
	case baseUint32:
		v := arch.Uint32(raw)
		return v, v == 0xFFFFFFFF
	case baseFloat32:
		bits := arch.Uint32(raw)
		return float64(math.Float32frombits(bits)), bits == 0xFFFFFFFF
	case baseFloat64:
		bits := arch.Uint64(raw)
		return math.Float64frombits(bits), bits == 0xFFFFFFFFFFFFFFFF
	case baseUint8z:
		return raw[0], raw[0] == 0
	case baseUint16z:
		v := arch.Uint16(raw)
		return v, v == 0
	case baseUint32z:
		v := arch.Uint32(raw)
		return v, v == 0
	case baseSint64:
		v := int64(arch.Uint64(raw))
		return v, v == 0x7FFFFFFFFFFFFFFF
	case baseUint64:
		v := arch.Uint64(raw)
		return v, v == 0xFFFFFFFFFFFFFFFF
	case baseUint64z:
		v := arch.Uint64(raw)
		return v, v == 0
	default:
		return append([]byte(nil), raw...), false
	}
}

func decompressBaseType(b byte) baseType {
	switch b & 0x1F {
	case 0x03:
		return baseSint16
	case 0x04:
		return baseUint16
	case 0x05:
		return baseSint32
	case 0x06:
		return baseUint32
	case 0x08:
		return baseFloat32
	case 0x09:
		return baseFloat64
	case 0x0B:
		return baseUint16z
	case 0x0C:
		return baseUint32z
	case 0x0E:
		return baseSint64
	case 0x0F:
		return baseUint64
	case 0x10:
		return baseUint64z
	default:
		return baseType(b & 0x1F)
	}
}

func nullTerminated(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}

func allBytes(raw []byte, value byte) bool {
	if len(raw) == 0 {
		return false
	}
	for _, b := range raw {
		if b != value {
			return false
		}
	}
	return true
}
