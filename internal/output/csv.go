// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"iter"
	"strings"
)

// WriteCSV streams rows as CSV, one encoding/csv.Writer.Write call per row.
// Multi-valued cells join with ";", distinct from the table formatter's
// ", " join, since CSV already reserves the comma as a field separator.
func WriteCSV(w io.Writer, rows iter.Seq[Row], fields []string) error {
	cw := csv.NewWriter(w)

	header := fields
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return err
		}
	}

	for row := range rows {
		if header == nil {
			header = fieldOrder(row)
			if err := cw.Write(header); err != nil {
				return err
			}
		}
		record := make([]string, len(header))
		for i, field := range header {
			record[i] = formatCSVCell(row.Get(field))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatCSVCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ";")
	default:
		return fmt.Sprint(val)
	}
}
