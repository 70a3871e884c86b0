// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package output renders query results and header dumps in four
// presentations: table, json, csv, and excel.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Row is one projected entry: an ordered list of attribute name/value
// pairs (value a scalar or a slice), as produced by query.Engine's
// Materialise. The pair order is significant: selection order when an
// attribute selection was given, on-disk storage order otherwise.
type Row []Field

// Field is one attribute of a Row.
type Field struct {
	Name  string
	Value any
}

// Get returns the value stored under name, or nil if the row does not
// carry that field.
func (r Row) Get(name string) any {
	for _, f := range r {
		if f.Name == name {
			return f.Value
		}
	}
	return nil
}

// WriteTable renders rows as a table via tablewriter, one column per field
// in fields (or, if fields is empty, the first row's fields in their own
// order). Multi-valued cells join with ", ".
func WriteTable(w io.Writer, rows []Row, fields []string) error {
	if len(rows) == 0 {
		return nil
	}
	if len(fields) == 0 {
		fields = fieldOrder(rows[0])
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(fields)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, row := range rows {
		cells := make([]string, len(fields))
		for i, field := range fields {
			cells[i] = formatCell(row.Get(field))
		}
		table.Append(cells)
	}

	table.Render()
	return nil
}

// WriteKeyValueTable renders a flat key/value structure (e.g. a decoded
// snapshot header) as a two-column table.
func WriteKeyValueTable(w io.Writer, pairs [][2]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator(":")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, pair := range pairs {
		table.Append([]string{pair[0], pair[1]})
	}
	table.Render()
}

// fieldOrder returns the row's field names in the order the row carries
// them, used as the column fallback when no explicit selection was given.
func fieldOrder(row Row) []string {
	fields := make([]string, len(row))
	for i, f := range row {
		fields[i] = f.Name
	}
	return fields
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}
