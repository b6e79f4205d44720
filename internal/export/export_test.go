package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"casedesk/api/internal/store"
)

func sampleCases() []store.Case {
	sr := 1
	amount := 1234567.50
	particular := "Recovery suit"
	start := "2024-01-15"
	return []store.Case{
		{
			ID:             "c1",
			SrNo:           &sr,
			Parties:        "Acme Corp vs State Bank",
			Forum:          "High Court Delhi",
			Particular:     &particular,
			StartDate:      &start,
			AmountInvolved: &amount,
			Status:         "Active",
		},
		{
			ID:      "c2",
			Parties: "Union of India vs Beta Ltd",
			Forum:   "NCLT Mumbai",
			Status:  "Active",
		},
	}
}

func TestExportCSV(t *testing.T) {
	svc := NewService()

	result, err := svc.Export(sampleCases(), FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasSuffix(result.Filename, ".csv") {
		t.Errorf("filename = %q", result.Filename)
	}
	if result.MimeType != "text/csv" {
		t.Errorf("mime = %q", result.MimeType)
	}

	records, err := csv.NewReader(bytes.NewReader(result.Data)).ReadAll()
	if err != nil {
		t.Fatalf("reparse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(records))
	}
	if records[0][0] != "Sr. No." || records[0][1] != "Parties" {
		t.Errorf("header = %v", records[0])
	}
	if records[1][1] != "Acme Corp vs State Bank" || records[1][7] != "1234567.5" {
		t.Errorf("row = %v", records[1])
	}
	// Absent optionals are blank cells, not the word "null".
	if records[2][3] != "" || records[2][7] != "" {
		t.Errorf("expected blank optionals: %v", records[2])
	}
}

func TestExportXLSX(t *testing.T) {
	svc := NewService()

	result, err := svc.Export(sampleCases(), FormatXLSX)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasSuffix(result.Filename, ".xlsx") {
		t.Errorf("filename = %q", result.Filename)
	}

	file, err := excelize.OpenReader(bytes.NewReader(result.Data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer file.Close()

	rows, err := file.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[1][1] != "Acme Corp vs State Bank" {
		t.Errorf("parties = %q", rows[1][1])
	}
	if rows[1][7] != "1234567.5" {
		t.Errorf("amount = %q", rows[1][7])
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	svc := NewService()
	if _, err := svc.Export(nil, Format("docx")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestRenderRegisterHTML(t *testing.T) {
	html, err := RenderRegisterHTML(RegisterData{
		Title: "Litigation Case Register",
		Cases: sampleCases(),
	})
	if err != nil {
		t.Fatalf("RenderRegisterHTML: %v", err)
	}
	if !strings.Contains(html, "Acme Corp vs State Bank") {
		t.Error("expected case parties in rendered register")
	}
	if !strings.Contains(html, "2 cases") {
		t.Error("expected case count in rendered register")
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	got := percentEncodeForDataURL("a b&c")
	if got != "a%20b%26c" {
		t.Errorf("encoded = %q", got)
	}
}
