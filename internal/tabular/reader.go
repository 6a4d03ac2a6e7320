package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Row is one data row of an uploaded file, keyed by header label.
type Row map[string]string

// Read turns the bytes of an uploaded file into ordered rows of labeled
// cells. The first row of the source is always treated as the header row.
// An unknown file type fails before any bytes are consumed.
func Read(fileType FileType, r io.Reader) ([]Row, error) {
	switch fileType {
	case FileTypeCSV:
		return readCSV(r)
	case FileTypeXLS:
		return readXLS(r)
	case FileTypeXLSX:
		return readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// readCSV reads the regional CSV convention: Windows-1251 code page,
// ';' delimiter, '"' quote character. This is a fixed format contract.
func readCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(charmap.Windows1251.NewDecoder().Reader(r))
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	table, err := cr.ReadAll()
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	return rowsFromTable(table), nil
}

// readXLS reads a legacy Excel workbook: first sheet, row 0 as headers.
func readXLS(r io.Reader) ([]Row, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}

	wb, err := xls.OpenReader(bytes.NewReader(raw), "utf-8")
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, &ParseError{Cause: errors.New("workbook has no sheets")}
	}

	table := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			table = append(table, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		table = append(table, cells)
	}
	return rowsFromTable(table), nil
}

// readXLSX reads a modern Excel workbook: first sheet, row 0 as headers.
func readXLSX(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Cause: errors.New("workbook has no sheets")}
	}
	table, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Cause: err}
	}
	return rowsFromTable(table), nil
}

// rowsFromTable reshapes a header-first table into labeled rows.
// Ragged data rows are padded with empty cells; a label is only considered
// missing when it is absent from the header row itself.
func rowsFromTable(table [][]string) []Row {
	if len(table) == 0 {
		return nil
	}

	header := make([]string, len(table[0]))
	for i, label := range table[0] {
		header[i] = strings.TrimSpace(label)
	}

	rows := make([]Row, 0, len(table)-1)
	for _, cells := range table[1:] {
		row := make(Row, len(header))
		for i, label := range header {
			if label == "" {
				continue
			}
			if i < len(cells) {
				row[label] = strings.TrimSpace(cells[i])
			} else {
				row[label] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows
}
