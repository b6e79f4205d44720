package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

const preferredSheet = "Sheet1"

// readRows extracts the tabular content of an upload into header-keyed rows.
// The first non-empty line is the header; every data row carries a value for
// every header, defaulting to "". Header order from the file is preserved so
// downstream alias resolution is deterministic.
func readRows(filename string, data []byte) ([]string, []Row, error) {
	var (
		cells [][]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		cells, err = readCSV(data)
	case ".xlsx":
		cells, err = readXLSX(data)
	case ".xls":
		cells, err = readXLS(data)
	default:
		return nil, nil, ErrUnsupportedFileType
	}
	if err != nil {
		return nil, nil, err
	}
	if len(cells) == 0 {
		return nil, nil, ErrNoData
	}

	headers := make([]string, 0, len(cells[0]))
	for _, header := range cells[0] {
		headers = append(headers, strings.TrimSpace(header))
	}

	rows := make([]Row, 0, len(cells)-1)
	for _, record := range cells[1:] {
		row := make(Row, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, nil, ErrNoData
	}
	return headers, rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func readXLSX(data []byte) ([][]string, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	sheet := pickSheet(file.GetSheetList())
	if sheet == "" {
		return nil, ErrNoData
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, ErrNoData
	}

	index := 0
	for i := 0; i < workbook.NumSheets(); i++ {
		if sheet := workbook.GetSheet(i); sheet != nil && sheet.Name == preferredSheet {
			index = i
			break
		}
	}
	sheet := workbook.GetSheet(index)
	if sheet == nil {
		return nil, ErrNoData
	}

	var records [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			records = append(records, nil)
			continue
		}
		record := make([]string, 0, row.LastCol()+1)
		for col := 0; col <= row.LastCol(); col++ {
			record = append(record, row.Col(col))
		}
		records = append(records, record)
	}
	return records, nil
}

// pickSheet prefers the conventional first-sheet name, falling back to the
// workbook's first sheet for files saved with a custom name.
func pickSheet(sheets []string) string {
	if len(sheets) == 0 {
		return ""
	}
	for _, name := range sheets {
		if name == preferredSheet {
			return name
		}
	}
	return sheets[0]
}
