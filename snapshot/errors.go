// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package snapshot

import "errors"

// Errors returned by the snapshot decoder. Structural failures detected
// while parsing the fixed-size regions of the file are fatal to Open;
// failures while materialising a single entry are isolated to that entry.
var (
	// ErrNotFound is returned when the snapshot path does not point to a
	// regular file.
	ErrNotFound = errors.New("snapshot: file not found")

	// ErrTruncatedFile is returned when a fixed-size structure extends past
	// the end of the underlying byte source.
	ErrTruncatedFile = errors.New("snapshot: truncated file")

	// ErrMalformedHeader is returned when the header's mapping-offset halves
	// produce an offset outside the file.
	ErrMalformedHeader = errors.New("snapshot: malformed header")

	// ErrAttributeAbsent is returned when a requested property is not in the
	// schema or not present on a given entry. Evaluators must treat this as
	// a false condition, never surface it as an error.
	ErrAttributeAbsent = errors.New("snapshot: attribute absent")

	// ErrOutsideBoundary is returned when a read would extend past the
	// underlying byte source.
	ErrOutsideBoundary = errors.New("snapshot: read outside file boundary")
)
