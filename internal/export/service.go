package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"casedesk/api/internal/store"
)

var registerColumns = []string{
	"Sr. No.", "Parties", "Forum", "Particular",
	"Start Date", "Last Date of Hearing", "Next Date",
	"Amount involved", "Treatment undertaken Resolution", "Remarks", "Status",
}

// Service renders case registers in downloadable formats.
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// Export generates a case register in the requested format.
func (s *Service) Export(cases []store.Case, format Format) (*Result, error) {
	name := "litigation-cases-" + time.Now().UTC().Format("2006-01-02")
	switch format {
	case FormatCSV:
		return exportCSV(cases, name)
	case FormatXLSX:
		return exportXLSX(cases, name)
	case FormatPDF:
		html, err := RenderRegisterHTML(RegisterData{
			Title:       "Litigation Case Register",
			GeneratedAt: time.Now().UTC(),
			Cases:       cases,
		})
		if err != nil {
			return nil, fmt.Errorf("render register: %w", err)
		}
		return exportPDF(html, name)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func caseRow(c store.Case) []string {
	return []string{
		intOrEmpty(c.SrNo),
		c.Parties,
		c.Forum,
		strOrEmpty(c.Particular),
		strOrEmpty(c.StartDate),
		strOrEmpty(c.LastHearingDate),
		strOrEmpty(c.NextHearingDate),
		floatOrEmpty(c.AmountInvolved),
		strOrEmpty(c.TreatmentResolution),
		strOrEmpty(c.Remarks),
		c.Status,
	}
}

func exportCSV(cases []store.Case, name string) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(registerColumns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, c := range cases {
		if err := w.Write(caseRow(c)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: name + ".csv",
		MimeType: "text/csv",
	}, nil
}

func exportXLSX(cases []store.Case, name string) (*Result, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	sheet := "Sheet1"
	header := make([]interface{}, len(registerColumns))
	for i, col := range registerColumns {
		header[i] = col
	}
	if err := file.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, c := range cases {
		row := caseRow(c)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = v
		}
		// Amounts go in as numbers so spreadsheet sums work.
		if c.AmountInvolved != nil {
			values[7] = *c.AmountInvolved
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("cell name: %w", err)
		}
		if err := file.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: name + ".xlsx",
		MimeType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, nil
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
