// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package filter

import "fmt"

// SyntaxError is returned by Parse when the filter text is malformed. It
// carries a human-readable message and the byte offset where parsing
// stopped. SyntaxError is fatal to the query that produced it, never to
// the process.
type SyntaxError struct {
	Message string
	Offset  int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("filter syntax error at offset %d: %s", e.Offset, e.Message)
}

func newSyntaxError(offset int, format string, args ...any) error {
	return &SyntaxError{Message: fmt.Sprintf(format, args...), Offset: offset}
}
