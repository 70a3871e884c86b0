// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import (
	"encoding/binary"
	"unicode/utf16"
)

// This file builds minimal, byte-exact snapshot fixtures in memory for
// tests. There is no sample ADExplorer capture available, so the fixture
// is assembled directly against the on-disk byte layout rather than
// checking in a binary asset.

type testProperty struct {
	name    string
	adsType ADSType
	dn      string
}

// testObject is one object record: an ordered set of (property name,
// values) pairs. Values are one of string, uint32, int64, bool, []byte
// (raw octet string), or utcTimeFields.
type testObject struct {
	attrs []testAttr
}

type testAttr struct {
	name   string
	values []any
}

type utcTimeFields struct {
	year, month, day, hour, minute, second int
}

func utf16leBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	buf := make([]byte, len(units)*2)
	for i, u := range units {
		binary.LittleEndian.PutUint16(buf[i*2:], u)
	}
	return buf
}

func utf16leCString(s string) []byte {
	return append(utf16leBytes(s), 0, 0)
}

func fixedWideField(s string) []byte {
	buf := make([]byte, 260*2)
	copy(buf, utf16leBytes(s))
	return buf
}

func putU32(buf []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, v)
	return append(buf, tmp...)
}

func putI32(buf []byte, v int32) []byte {
	return putU32(buf, uint32(v))
}

func putU64(buf []byte, v uint64) []byte {
	tmp := make([]byte, 8)
	binary.LittleEndian.PutUint64(tmp, v)
	return append(buf, tmp...)
}

func putI64(buf []byte, v int64) []byte {
	return putU64(buf, uint64(v))
}

func putU16(buf []byte, v uint16) []byte {
	tmp := make([]byte, 2)
	binary.LittleEndian.PutUint16(tmp, v)
	return append(buf, tmp...)
}

// buildSnapshot assembles a full .dat byte image from a property schema
// and a list of objects, each an ordered list of (attribute name, values)
// pairs.
func buildSnapshot(props []testProperty, objects []testObject) []byte {
	var buf []byte

	// Header.
	buf = append(buf, []byte("ADSNAPSHOT")...) // 10-byte signature, no NULs to strip
	buf = putI32(buf, 0)                       // marker, ignored
	buf = putU64(buf, 0)                       // filetime = 0 -> unix epoch
	buf = append(buf, fixedWideField("test capture")...)
	buf = append(buf, fixedWideField("dc01.example.test")...)
	buf = putU32(buf, uint32(len(objects)))
	buf = putU32(buf, uint32(len(props)))

	// Build the schema table separately so we know its length before
	// emitting the mapping offset.
	var schemaBuf []byte
	schemaBuf = putU32(schemaBuf, uint32(len(props)))
	for _, p := range props {
		nameBytes := utf16leBytes(p.name)
		schemaBuf = putU32(schemaBuf, uint32(len(nameBytes)))
		schemaBuf = append(schemaBuf, nameBytes...)
		schemaBuf = putI32(schemaBuf, 0) // reserved
		schemaBuf = putU32(schemaBuf, uint32(p.adsType))
		dnBytes := utf16leBytes(p.dn)
		schemaBuf = putU32(schemaBuf, uint32(len(dnBytes)))
		schemaBuf = append(schemaBuf, dnBytes...)
		schemaBuf = append(schemaBuf, make([]byte, 16)...) // schema GUID
		schemaBuf = append(schemaBuf, make([]byte, 16)...) // attribute GUID
		schemaBuf = append(schemaBuf, make([]byte, 4)...)  // reserved blob
	}

	// We lay the file out as: header (fixed 0x43E bytes) | object records |
	// schema table. mappingOffset therefore points past the objects.
	objectsBuf := buildObjects(props, objects)
	mappingOffset := uint64(firstObjectOffset + len(objectsBuf))

	buf = putU32(buf, uint32(mappingOffset&0xFFFFFFFF))
	buf = putU32(buf, uint32(mappingOffset>>32))
	buf = putU32(buf, 0) // mapping-end, ignored
	buf = putI32(buf, 0) // reserved

	for len(buf) < firstObjectOffset {
		buf = append(buf, 0)
	}

	buf = append(buf, objectsBuf...)
	buf = append(buf, schemaBuf...)

	return buf
}

func propIndex(props []testProperty, name string) int {
	for i, p := range props {
		if p.name == name {
			return i
		}
	}
	panic("unknown test property: " + name)
}

func buildObjects(props []testProperty, objects []testObject) []byte {
	var out []byte
	for _, obj := range objects {
		out = append(out, buildObjectRecord(props, obj)...)
	}
	return out
}

func buildObjectRecord(props []testProperty, obj testObject) []byte {
	// Build each attribute's payload first so we know its size and can
	// compute relative offsets.
	type encodedAttr struct {
		propIdx int
		payload []byte
	}

	var encoded []encodedAttr
	for _, a := range obj.attrs {
		idx := propIndex(props, a.name)
		payload := encodeAttrPayload(props[idx].adsType, props[idx].name, a.values)
		encoded = append(encoded, encodedAttr{propIdx: idx, payload: payload})
	}

	headerSize := 4 + 4 + len(encoded)*8 // size + pairCount + pairs

	var body []byte
	relOffsets := make([]int32, len(encoded))
	cursor := headerSize
	for i, e := range encoded {
		relOffsets[i] = int32(cursor)
		body = append(body, e.payload...)
		cursor += len(e.payload)
	}

	var record []byte
	totalSize := uint32(headerSize + len(body))
	record = putU32(record, totalSize)
	record = putU32(record, uint32(len(encoded)))
	for i, e := range encoded {
		record = putU32(record, uint32(e.propIdx))
		record = putI32(record, relOffsets[i])
	}
	record = append(record, body...)

	return record
}

// encodeAttrPayload builds the value-count-prefixed payload for one
// attribute, relative offsets included for string types.
func encodeAttrPayload(adsType ADSType, propName string, values []any) []byte {
	var payload []byte
	payload = putU32(payload, uint32(len(values)))

	switch {
	case adsType.isStringType():
		// offsets table first, then string bodies, offsets relative to the
		// attribute start (the num_values field).
		offsetsLen := 4 * len(values)
		var bodies []byte
		offsets := make([]int32, len(values))
		cursor := 4 + offsetsLen
		for i, v := range values {
			offsets[i] = int32(cursor)
			strBytes := utf16leCString(v.(string))
			bodies = append(bodies, strBytes...)
			cursor += len(strBytes)
		}
		for _, o := range offsets {
			payload = putI32(payload, o)
		}
		payload = append(payload, bodies...)

	case adsType == ADSTypeOctetString:
		lengths := make([]uint32, len(values))
		var bodies []byte
		for i, v := range values {
			b := v.([]byte)
			lengths[i] = uint32(len(b))
			bodies = append(bodies, b...)
		}
		for _, l := range lengths {
			payload = putU32(payload, l)
		}
		payload = append(payload, bodies...)

	case adsType == ADSTypeBoolean:
		for _, v := range values {
			b := v.(bool)
			if b {
				payload = putU32(payload, 1)
			} else {
				payload = putU32(payload, 0)
			}
		}

	case adsType == ADSTypeInteger:
		for _, v := range values {
			payload = putU32(payload, v.(uint32))
		}

	case adsType == ADSTypeLargeInteger:
		for _, v := range values {
			payload = putI64(payload, v.(int64))
		}

	case adsType == ADSTypeUTCTime:
		for _, v := range values {
			f := v.(utcTimeFields)
			payload = putU16(payload, uint16(f.year))
			payload = putU16(payload, uint16(f.month))
			payload = putU16(payload, 0) // day of week, unused
			payload = putU16(payload, uint16(f.day))
			payload = putU16(payload, uint16(f.hour))
			payload = putU16(payload, uint16(f.minute))
			payload = putU16(payload, uint16(f.second))
			payload = putU16(payload, 0) // milliseconds, unused
		}

	default:
		for _, v := range values {
			b := v.([]byte)
			payload = putU32(payload, uint32(len(b)))
			payload = append(payload, b...)
		}
	}

	return payload
}
