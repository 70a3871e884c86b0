// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

// parseObjectOffsets walks the object records starting at firstObjectOffset,
// recording the absolute start offset of each one without decoding its
// contents. It stops early (tolerating truncation) if a read runs past the
// end of the file, or once count records have been indexed.
func parseObjectOffsets(s *source, count uint32) []uint32 {
	offsets := make([]uint32, 0, count)
	pos := uint32(firstObjectOffset)

	for i := uint32(0); i < count; i++ {
		size, err := s.ReadUint32(pos)
		if err != nil {
			break
		}
		offsets = append(offsets, pos)

		next := pos + size
		if next < pos || next > s.Len() {
			// Object record size runs past the remaining file: truncate
			// rather than error.
			break
		}
		pos = next
	}

	return offsets
}
