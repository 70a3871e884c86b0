// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package output

import (
	"bytes"
	"encoding/json"
	"io"
	"iter"
)

// MarshalJSON renders the row as a JSON object whose members appear in the
// row's own field order. Marshaling a plain map would sort the keys
// alphabetically, losing the selection/storage order the row carries.
func (r Row) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			b.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		b.Write(name)
		b.WriteByte(':')
		value, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		b.Write(value)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// WriteJSON streams rows as a JSON array, one element written at a time
// rather than building the whole slice up front.
func WriteJSON(w io.Writer, rows iter.Seq[Row]) error {
	if _, err := io.WriteString(w, "[\n"); err != nil {
		return err
	}

	first := true
	for row := range rows {
		if !first {
			if _, err := io.WriteString(w, ",\n"); err != nil {
				return err
			}
		}
		encoded, err := json.Marshal(row)
		if err != nil {
			return err
		}
		if _, err := w.Write(encoded); err != nil {
			return err
		}
		first = false
	}

	if !first {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "]")
	return err
}
