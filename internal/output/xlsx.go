// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package output

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// WriteExcel writes rows as a single-sheet .xlsx workbook, assembled
// directly as a zip of its XML parts. The generated sheet skips shared
// strings, styles, and table definitions; every cell is written as an
// inline string.
func WriteExcel(w io.Writer, rows []Row, fields []string) error {
	if len(fields) == 0 && len(rows) > 0 {
		fields = fieldOrder(rows[0])
	}

	zw := zip.NewWriter(w)

	if err := writeZipEntry(zw, "[Content_Types].xml", contentTypesXML); err != nil {
		return err
	}
	if err := writeZipEntry(zw, "_rels/.rels", rootRelsXML); err != nil {
		return err
	}
	if err := writeZipEntry(zw, "xl/workbook.xml", workbookXML); err != nil {
		return err
	}
	if err := writeZipEntry(zw, "xl/_rels/workbook.xml.rels", workbookRelsXML); err != nil {
		return err
	}

	sheet, err := buildSheetXML(fields, rows)
	if err != nil {
		return err
	}
	if err := writeZipEntry(zw, "xl/worksheets/sheet1.xml", sheet); err != nil {
		return err
	}

	return zw.Close()
}

func writeZipEntry(zw *zip.Writer, name, contents string) error {
	f, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.WriteString(f, contents)
	return err
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/xl/workbook.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"/>
<Override PartName="/xl/worksheets/sheet1.xml" ContentType="application/vnd.openxmlformats-officedocument.spreadsheetml.worksheet+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="xl/workbook.xml"/>
</Relationships>`

const workbookXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Results" sheetId="1" r:id="rId1"/></sheets>
</workbook>`

const workbookRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/worksheet" Target="worksheets/sheet1.xml"/>
</Relationships>`

// columnLetter converts a 1-based column index to its spreadsheet letter
// (1 -> A, 27 -> AA).
func columnLetter(col int) string {
	var letters []byte
	for col > 0 {
		col--
		letters = append([]byte{byte('A' + col%26)}, letters...)
		col /= 26
	}
	return string(letters)
}

func buildSheetXML(fields []string, rows []Row) (string, error) {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`)
	b.WriteString(`<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>`)

	rowNum := 1
	if len(fields) > 0 {
		writeSheetRow(&b, rowNum, fields)
		rowNum++
	}
	for _, row := range rows {
		cells := make([]string, len(fields))
		for i, field := range fields {
			cells[i] = formatCSVCell(row.Get(field))
		}
		writeSheetRow(&b, rowNum, cells)
		rowNum++
	}

	b.WriteString(`</sheetData></worksheet>`)
	return b.String(), nil
}

func writeSheetRow(b *strings.Builder, rowNum int, cells []string) {
	fmt.Fprintf(b, `<row r="%d">`, rowNum)
	for i, cell := range cells {
		ref := fmt.Sprintf("%s%d", columnLetter(i+1), rowNum)
		fmt.Fprintf(b, `<c r="%s" t="inlineStr"><is><t xml:space="preserve">%s</t></is></c>`, ref, escapeXMLText(cell))
	}
	b.WriteString(`</row>`)
}

func escapeXMLText(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
