// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"
)

// source is the typed primitive byte reader every decoded structure is
// built on top of. It is backed either by a memory map or by a fully
// buffered read of the file, with an identical read surface either way.
type source struct {
	data []byte
}

func newSource(data []byte) *source {
	return &source{data: data}
}

func (s *source) Len() uint32 {
	return uint32(len(s.data))
}

// ReadUint8 reads a single byte at offset.
func (s *source) ReadUint8(offset uint32) (uint8, error) {
	if offset+1 > s.Len() {
		return 0, ErrOutsideBoundary
	}
	return s.data[offset], nil
}

// ReadUint16 reads a little-endian uint16 at offset.
func (s *source) ReadUint16(offset uint32) (uint16, error) {
	if offset+2 > s.Len() {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint16(s.data[offset:]), nil
}

// ReadUint32 reads a little-endian uint32 at offset.
func (s *source) ReadUint32(offset uint32) (uint32, error) {
	if offset+4 > s.Len() {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint32(s.data[offset:]), nil
}

// ReadInt32 reads a little-endian signed int32 at offset.
func (s *source) ReadInt32(offset uint32) (int32, error) {
	v, err := s.ReadUint32(offset)
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ReadUint64 reads a little-endian uint64 at offset.
func (s *source) ReadUint64(offset uint32) (uint64, error) {
	if offset+8 > s.Len() {
		return 0, ErrOutsideBoundary
	}
	return binary.LittleEndian.Uint64(s.data[offset:]), nil
}

// ReadInt64 reads a little-endian signed int64 at offset.
func (s *source) ReadInt64(offset uint32) (int64, error) {
	v, err := s.ReadUint64(offset)
	if err != nil {
		return 0, err
	}
	return int64(v), nil
}

// ReadBytes returns a slice of size bytes starting at offset. The slice
// aliases the underlying source; callers that need to retain it across a
// Close must copy it first.
func (s *source) ReadBytes(offset, size uint32) ([]byte, error) {
	total := offset + size
	if (total > offset) != (size > 0) {
		return nil, ErrOutsideBoundary
	}
	if offset > s.Len() || total > s.Len() {
		return nil, ErrOutsideBoundary
	}
	return s.data[offset:total], nil
}

// ReadCString reads a NUL-terminated UTF-16LE string starting at offset and
// returns it decoded, without the terminator.
func (s *source) ReadCString(offset uint32) (string, error) {
	end := offset
	for {
		if end+2 > s.Len() {
			return "", ErrOutsideBoundary
		}
		if s.data[end] == 0 && s.data[end+1] == 0 {
			break
		}
		end += 2
	}
	if end == offset {
		return "", nil
	}
	return decodeUTF16LE(s.data[offset:end])
}

// decodeUTF16LE decodes a UTF-16LE byte slice.
func decodeUTF16LE(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, err := decoder.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// decodeFixedUTF16Field decodes a fixed-width UTF-16LE field and strips
// trailing NUL padding, used for the header's description/server fields.
func decodeFixedUTF16Field(b []byte) (string, error) {
	s, err := decodeUTF16LE(b)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight([]byte(s), "\x00")), nil
}
