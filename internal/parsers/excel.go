package parsers

import (
	"bytes"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"spending-pattern-service/pkg/errors"
)

// parseXLSX reads the first sheet of an Office Open XML workbook into a
// RawTable. Cell values come back as display strings and go through the
// same typing path as CSV cells.
func (fi *FileIngestor) parseXLSX(name string, data []byte, stats *ParseStats) (*RawTable, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.ParseError(errors.CodeParseFailure, name, "failed to open xlsx workbook", err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyFile, name, "workbook has no sheets", nil)
	}

	// First sheet only; multi-sheet exports keep transactions on sheet one.
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, errors.ParseError(errors.CodeParseFailure, name, "failed to read first sheet", err)
	}

	if len(rows) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyFile, name, "", nil)
	}

	return assembleTable(name, rows[0], rows[1:], fi.config, stats, fi.logger)
}

// parseXLS reads the first sheet of a legacy BIFF workbook into a RawTable.
func (fi *FileIngestor) parseXLS(name string, data []byte, stats *ParseStats) (*RawTable, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.ParseError(errors.CodeParseFailure, name, "failed to open xls workbook", err)
	}

	sheet := workbook.GetSheet(0)
	if sheet == nil {
		return nil, errors.ParseError(errors.CodeEmptyFile, name, "workbook has no sheets", nil)
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}

		// LastCol is the index past the last populated cell.
		cells := make([]string, row.LastCol())
		for j := row.FirstCol(); j < row.LastCol(); j++ {
			if j >= 0 && j < len(cells) {
				cells[j] = row.Col(j)
			}
		}
		rows = append(rows, cells)
	}

	if len(rows) == 0 {
		return nil, errors.ParseError(errors.CodeEmptyFile, name, "", nil)
	}

	return assembleTable(name, rows[0], rows[1:], fi.config, stats, fi.logger)
}
