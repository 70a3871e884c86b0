// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import (
	"encoding/hex"
	"strings"
	"time"
)

// AttributeValueList is an ordered, multi-valued list of decoded attribute
// values. Elements are one of: string, uint32, int64, bool, []byte, or
// int64 (UTC seconds since epoch for UTCTime). An empty list encodes
// attribute absence at the value-count level (zero stored values).
type AttributeValueList []any

// decodeAttributeValues decodes the typed, multi-valued payload for one
// attribute. attrOffset is relative to the enclosing object's start
// (objectOffset); abs = objectOffset + attrOffset is where the value-count
// header for this attribute lives.
func decodeAttributeValues(s *source, prop PropertyDefinition, objectOffset uint32, attrOffset int32, raw bool) (AttributeValueList, error) {
	abs := uint32(int64(objectOffset) + int64(attrOffset))

	numValues, err := s.ReadUint32(abs)
	if err != nil {
		return nil, err
	}
	if numValues == 0 {
		return AttributeValueList{}, nil
	}

	switch {
	case prop.ADSType.isStringType():
		return decodeStringValues(s, abs, numValues)
	case prop.ADSType == ADSTypeOctetString:
		return decodeOctetStringValues(s, prop.Name, abs, numValues, raw)
	case prop.ADSType == ADSTypeBoolean:
		return decodeBoolValues(s, abs, numValues)
	case prop.ADSType == ADSTypeInteger:
		return decodeIntegerValues(s, abs, numValues)
	case prop.ADSType == ADSTypeLargeInteger:
		return decodeLargeIntegerValues(s, abs, numValues)
	case prop.ADSType == ADSTypeUTCTime:
		return decodeUTCTimeValues(s, abs, numValues)
	default:
		// ADSTypeNTSecurityDescriptor and any other unrecognised code: a
		// length-prefixed opaque blob.
		return decodeBlobValues(s, abs, numValues, raw)
	}
}

// decodeStringValues reads numValues i32 offsets relative to attrStart,
// then a NUL-terminated UTF-16LE string at each.
func decodeStringValues(s *source, attrStart uint32, numValues uint32) (AttributeValueList, error) {
	offsets := make([]int32, numValues)
	pos := attrStart + 4
	for i := uint32(0); i < numValues; i++ {
		rel, err := s.ReadInt32(pos)
		if err != nil {
			return nil, err
		}
		offsets[i] = rel
		pos += 4
	}

	values := make(AttributeValueList, 0, numValues)
	for _, rel := range offsets {
		strOffset := uint32(int64(attrStart) + int64(rel))
		str, err := s.ReadCString(strOffset)
		if err != nil {
			return nil, err
		}
		values = append(values, str)
	}
	return values, nil
}

func decodeOctetStringValues(s *source, propName string, attrStart uint32, numValues uint32, raw bool) (AttributeValueList, error) {
	lengths := make([]uint32, numValues)
	pos := attrStart + 4
	for i := uint32(0); i < numValues; i++ {
		l, err := s.ReadUint32(pos)
		if err != nil {
			return nil, err
		}
		lengths[i] = l
		pos += 4
	}

	values := make(AttributeValueList, 0, numValues)
	for _, length := range lengths {
		blob, err := s.ReadBytes(pos, length)
		if err != nil {
			return nil, err
		}
		pos += length
		values = append(values, decodeOctetString(propName, blob, raw))
	}
	return values, nil
}

// decodeOctetString applies the post-decode presentation rules for
// ADSTypeOctetString: GUID for *guid/objectGUID 16-byte values, SID for
// objectSid, lowercase hex otherwise. In raw mode, the original bytes are
// returned unchanged.
func decodeOctetString(propName string, blob []byte, raw bool) any {
	if raw {
		return append([]byte(nil), blob...)
	}

	lowerName := strings.ToLower(propName)
	if len(blob) == 16 && (strings.HasSuffix(lowerName, "guid") || lowerName == "objectguid") {
		return formatGUIDBytes(blob)
	}
	if lowerName == "objectsid" {
		return formatSID(blob)
	}
	return hex.EncodeToString(blob)
}

func decodeBoolValues(s *source, attrStart uint32, numValues uint32) (AttributeValueList, error) {
	values := make(AttributeValueList, 0, numValues)
	pos := attrStart + 4
	for i := uint32(0); i < numValues; i++ {
		v, err := s.ReadUint32(pos)
		if err != nil {
			return nil, err
		}
		values = append(values, v != 0)
		pos += 4
	}
	return values, nil
}

func decodeIntegerValues(s *source, attrStart uint32, numValues uint32) (AttributeValueList, error) {
	values := make(AttributeValueList, 0, numValues)
	pos := attrStart + 4
	for i := uint32(0); i < numValues; i++ {
		v, err := s.ReadUint32(pos)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		pos += 4
	}
	return values, nil
}

func decodeLargeIntegerValues(s *source, attrStart uint32, numValues uint32) (AttributeValueList, error) {
	values := make(AttributeValueList, 0, numValues)
	pos := attrStart + 4
	for i := uint32(0); i < numValues; i++ {
		v, err := s.ReadInt64(pos)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		pos += 8
	}
	return values, nil
}

// decodeUTCTimeValues reads eight u16 fields per value (year, month, day of
// week (unused), day, hour, minute, second, milliseconds (unused)) and
// presents each as integer seconds since the UNIX epoch. Out-of-range
// fields present as 0 rather than erroring.
func decodeUTCTimeValues(s *source, attrStart uint32, numValues uint32) (AttributeValueList, error) {
	values := make(AttributeValueList, 0, numValues)
	pos := attrStart + 4
	for i := uint32(0); i < numValues; i++ {
		fields := make([]uint16, 8)
		for j := 0; j < 8; j++ {
			v, err := s.ReadUint16(pos)
			if err != nil {
				return nil, err
			}
			fields[j] = v
			pos += 2
		}

		year, month, day := int(fields[0]), int(fields[1]), int(fields[3])
		hour, minute, second := int(fields[4]), int(fields[5]), int(fields[6])

		values = append(values, utcTimeToUnixSeconds(year, month, day, hour, minute, second))
	}
	return values, nil
}

func utcTimeToUnixSeconds(year, month, day, hour, minute, second int) int64 {
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 60 {
		return 0
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	// time.Date normalises out-of-range day/month by rolling over; reject
	// that rather than silently returning a shifted date.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return 0
	}
	return t.Unix()
}

func decodeBlobValues(s *source, attrStart uint32, numValues uint32, raw bool) (AttributeValueList, error) {
	values := make(AttributeValueList, 0, numValues)
	pos := attrStart + 4
	for i := uint32(0); i < numValues; i++ {
		length, err := s.ReadUint32(pos)
		if err != nil {
			return nil, err
		}
		pos += 4
		blob, err := s.ReadBytes(pos, length)
		if err != nil {
			return nil, err
		}
		pos += length

		if raw {
			values = append(values, append([]byte(nil), blob...))
		} else {
			values = append(values, hex.EncodeToString(blob))
		}
	}
	return values, nil
}
