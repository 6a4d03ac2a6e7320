package tabular

import (
	"bytes"
	"encoding/csv"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Export is a serialized table ready to be sent as a download.
type Export struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Write serializes data rows into the requested file type. Each row must
// hold one cell per mapped column, in column order; the header row is added
// from the same fixed mapping the reader uses, so a round trip is
// label-stable.
//
// xls is recognized as a file type but is not an export target.
func Write(fileType FileType, rows [][]string) (Export, error) {
	switch fileType {
	case FileTypeCSV:
		return writeCSV(rows)
	case FileTypeXLSX:
		return writeXLSX(rows)
	default:
		return Export{}, ErrUnsupportedFormat
	}
}

// writeCSV mirrors the import contract (Windows-1251, ';' delimiter) so an
// exported file re-imports without conversion.
func writeCSV(rows [][]string) (Export, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(charmap.Windows1251.NewEncoder().Writer(&buf))
	cw.Comma = ';'

	if err := cw.Write(headerLabels()); err != nil {
		return Export{}, err
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return Export{}, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return Export{}, err
	}

	return Export{
		Data:        buf.Bytes(),
		ContentType: FileTypeCSV.ContentType(),
		Filename:    FileTypeCSV.ExportFilename(),
	}, nil
}

func writeXLSX(rows [][]string) (Export, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := writeSheetRow(f, sheet, 1, headerLabels()); err != nil {
		return Export{}, err
	}
	for i, row := range rows {
		if err := writeSheetRow(f, sheet, i+2, row); err != nil {
			return Export{}, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return Export{}, err
	}
	return Export{
		Data:        buf.Bytes(),
		ContentType: FileTypeXLSX.ContentType(),
		Filename:    FileTypeXLSX.ExportFilename(),
	}, nil
}

func writeSheetRow(f *excelize.File, sheet string, rowIndex int, cells []string) error {
	for i, cell := range cells {
		name, err := excelize.CoordinatesToCellName(i+1, rowIndex)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, name, cell); err != nil {
			return err
		}
	}
	return nil
}

func headerLabels() []string {
	labels := make([]string, len(Columns))
	for i, col := range Columns {
		labels[i] = col.Label
	}
	return labels
}
