// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// formatGUIDBytes renders a 16-byte GUID in its on-disk little-endian layout
// (first three fields little-endian, rest byte order) in canonical
// 8-4-4-4-12 hex form.
func formatGUIDBytes(b []byte) string {
	if len(b) != 16 {
		return hex.EncodeToString(b)
	}
	var d1 [4]byte
	copy(d1[:], b[0:4])
	d1Val := binary.LittleEndian.Uint32(d1[:])

	d2 := binary.LittleEndian.Uint16(b[4:6])
	d3 := binary.LittleEndian.Uint16(b[6:8])

	return fmt.Sprintf("%08x-%04x-%04x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		d1Val, d2, d3,
		b[8], b[9],
		b[10], b[11], b[12], b[13], b[14], b[15])
}

// formatSID renders a binary Windows security identifier in its standard
// textual form: S-<revision>-<identifier authority>[-<sub authority>]*.
// Inputs shorter than 8 bytes are rendered as lowercase hex instead.
func formatSID(b []byte) string {
	if len(b) < 8 {
		return hex.EncodeToString(b)
	}

	revision := b[0]
	subAuthorityCount := int(b[1])

	var identifierAuthority uint64
	for i := 2; i < 8; i++ {
		identifierAuthority = (identifierAuthority << 8) | uint64(b[i])
	}

	var sb strings.Builder
	sb.WriteString("S-")
	sb.WriteString(strconv.Itoa(int(revision)))
	sb.WriteByte('-')
	sb.WriteString(strconv.FormatUint(identifierAuthority, 10))

	for i := 0; i < subAuthorityCount; i++ {
		start := 8 + i*4
		end := start + 4
		if end > len(b) {
			break
		}
		sub := binary.LittleEndian.Uint32(b[start:end])
		sb.WriteByte('-')
		sb.WriteString(strconv.FormatUint(uint64(sub), 10))
	}

	return sb.String()
}
