// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import (
	"bytes"
	"time"
)

// firstObjectOffset is the fixed absolute offset of the first object record,
// immediately following the fixed-size header region.
const firstObjectOffset = 0x43E

const (
	headerSignatureSize    = 10
	headerWideFieldWidth   = 260 * 2 // UTF-16LE, 260 wide chars
	headerDescriptionBytes = headerWideFieldWidth
	headerServerBytes      = headerWideFieldWidth
)

// Header holds the fixed metadata at the start of a snapshot file. It is
// immutable once parsed.
type Header struct {
	// Signature is the ASCII marker at the start of the file, trailing NULs
	// stripped.
	Signature string

	// CapturedAt is the capture instant, derived from a 64-bit 100-ns
	// FILETIME count, normalised to UTC.
	CapturedAt time.Time

	// Description is an optional free-text description of the capture.
	Description string

	// Server is the directory server the capture was taken from.
	Server string

	// ObjectCount is the number of object records the file claims to hold.
	ObjectCount uint32

	// AttributeCount is the number of properties the header claims the
	// schema table holds. The schema table's own count wins on mismatch;
	// see Decoder.SchemaMismatch.
	AttributeCount uint32

	// mappingOffset is the absolute byte offset of the property schema
	// table, assembled from two 32-bit halves (low then high).
	mappingOffset uint64

	// FileSize is the size of the underlying byte source, not necessarily
	// the size on disk (e.g. when reading from an in-memory buffer).
	FileSize uint32
}

// parseHeader parses the fixed header region starting at offset 0.
func parseHeader(s *source) (Header, error) {
	var h Header

	sigBytes, err := s.ReadBytes(0, headerSignatureSize)
	if err != nil {
		return h, ErrTruncatedFile
	}
	h.Signature = string(bytes.TrimRight(sigBytes, "\x00"))

	// offset 10: 4-byte marker, ignored.
	// offset 14: 8-byte capture filetime.
	filetime, err := s.ReadUint64(14)
	if err != nil {
		return h, ErrTruncatedFile
	}
	h.CapturedAt = filetimeToUTC(filetime)

	descBytes, err := s.ReadBytes(22, headerDescriptionBytes)
	if err != nil {
		return h, ErrTruncatedFile
	}
	h.Description, err = decodeFixedUTF16Field(descBytes)
	if err != nil {
		return h, err
	}

	serverBytes, err := s.ReadBytes(542, headerServerBytes)
	if err != nil {
		return h, ErrTruncatedFile
	}
	h.Server, err = decodeFixedUTF16Field(serverBytes)
	if err != nil {
		return h, err
	}

	h.ObjectCount, err = s.ReadUint32(1062)
	if err != nil {
		return h, ErrTruncatedFile
	}
	h.AttributeCount, err = s.ReadUint32(1066)
	if err != nil {
		return h, ErrTruncatedFile
	}

	mappingLow, err := s.ReadUint32(1070)
	if err != nil {
		return h, ErrTruncatedFile
	}
	mappingHigh, err := s.ReadUint32(1074)
	if err != nil {
		return h, ErrTruncatedFile
	}
	// offset 1078: mapping-end, ignored.
	// offset 1082: reserved, ignored.

	h.mappingOffset = (uint64(mappingHigh) << 32) | uint64(mappingLow)
	if h.mappingOffset > uint64(s.Len()) {
		return h, ErrMalformedHeader
	}

	h.FileSize = s.Len()
	return h, nil
}
