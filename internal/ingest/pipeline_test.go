package ingest

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

const sampleHeader = "Sr. No.,Parties,Forum,Particular,Start Date,Last Date of Hearing,Next Date,Amount involved,Treatment undertaken Resolution,Remarks"

func sampleCSV(rows ...string) []byte {
	return []byte(sampleHeader + "\n" + strings.Join(rows, "\n") + "\n")
}

func TestParseCSV(t *testing.T) {
	data := sampleCSV(
		`1,Acme Corp vs State Bank,High Court Delhi,Recovery suit,15-01-2024,10-06-2024,20-09-2024,"₹12,34,567.50",Reply filed,Listed for hearing`,
		`2,Union of India vs Beta Ltd,NCLT Mumbai,Insolvency petition,2024-02-01,,,"450000",,`,
		`,Gamma LLP vs Delta Inc,District Court Pune,,,,,,,`,
	)

	result, err := Parse("cases.csv", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.TotalRows != 3 || result.Skipped != 0 || len(result.Cases) != 3 {
		t.Fatalf("unexpected counts: total=%d skipped=%d cases=%d", result.TotalRows, result.Skipped, len(result.Cases))
	}

	first := result.Cases[0]
	if first.SrNo == nil || *first.SrNo != 1 {
		t.Fatalf("sr_no = %v", first.SrNo)
	}
	if first.Parties != "Acme Corp vs State Bank" || first.Forum != "High Court Delhi" {
		t.Fatalf("required fields = %q / %q", first.Parties, first.Forum)
	}
	if first.StartDate == nil || *first.StartDate != "2024-01-15" {
		t.Fatalf("start_date = %v", first.StartDate)
	}
	if first.NextHearingDate == nil || *first.NextHearingDate != "2024-09-20" {
		t.Fatalf("next_hearing_date = %v", first.NextHearingDate)
	}
	if first.AmountInvolved == nil || *first.AmountInvolved != 1234567.50 {
		t.Fatalf("amount_involved = %v", first.AmountInvolved)
	}
	if first.Status != "Active" {
		t.Fatalf("status = %q", first.Status)
	}

	second := result.Cases[1]
	if second.LastHearingDate != nil || second.Remarks != nil {
		t.Fatalf("expected absent optionals, got %v / %v", second.LastHearingDate, second.Remarks)
	}

	// A blank sequence cell falls back to the row position.
	third := result.Cases[2]
	if third.SrNo == nil || *third.SrNo != 3 {
		t.Fatalf("fallback sr_no = %v", third.SrNo)
	}
	if third.Particular != nil {
		t.Fatalf("expected absent particular, got %q", *third.Particular)
	}
}

func TestParseStripsFormulaPrefixes(t *testing.T) {
	data := sampleCSV(`1,"=HYPERLINK(""http://evil"")",@cmd forum,,,,,,,`)

	result, err := Parse("cases.csv", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got := result.Cases[0]
	if strings.HasPrefix(got.Parties, "=") || strings.HasPrefix(got.Forum, "@") {
		t.Fatalf("formula prefix survived: %q / %q", got.Parties, got.Forum)
	}
}

func TestParseAmountBoundaries(t *testing.T) {
	data := sampleCSV(
		`1,A vs B,Forum,,,,,999999999999,,`,
		`2,C vs D,Forum,,,,,1000000000000,,`,
		`3,E vs F,Forum,,,,,-50,,`,
	)

	result, err := Parse("cases.csv", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Cases) != 3 {
		t.Fatalf("cases = %d, want 3", len(result.Cases))
	}
	if result.AmountsDropped != 2 {
		t.Fatalf("amounts dropped = %d, want 2", result.AmountsDropped)
	}
	if amt := result.Cases[0].AmountInvolved; amt == nil || *amt != 999999999999 {
		t.Fatalf("boundary amount = %v, want retained", amt)
	}
	if result.Cases[1].AmountInvolved != nil {
		t.Fatalf("over-limit amount retained: %v", *result.Cases[1].AmountInvolved)
	}
	if result.Cases[2].AmountInvolved != nil {
		t.Fatalf("negative amount retained: %v", *result.Cases[2].AmountInvolved)
	}
}

func TestParseSkipsRowsMissingRequiredFields(t *testing.T) {
	data := sampleCSV(
		`1,A vs B,High Court,,,,,,,`,
		`2,,High Court,,,,,,,`,
		`3,C vs D,,,,,,,,`,
	)

	result, err := Parse("cases.csv", data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Cases) != 1 || result.Skipped != 2 {
		t.Fatalf("cases=%d skipped=%d, want 1/2", len(result.Cases), result.Skipped)
	}
}

func TestParseNoValidRows(t *testing.T) {
	data := sampleCSV(
		`1,,High Court,,,,,,,`,
		`2,A vs B,,,,,,,,`,
	)

	_, err := Parse("cases.csv", data)
	if !errors.Is(err, ErrNoValidRows) {
		t.Fatalf("err = %v, want ErrNoValidRows", err)
	}
}

func TestParseInputGates(t *testing.T) {
	if _, err := Parse("cases.pdf", []byte("x")); !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("extension gate: %v", err)
	}

	oversized := make([]byte, MaxFileBytes+1)
	if _, err := Parse("cases.csv", oversized); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("size gate: %v", err)
	}

	var sb strings.Builder
	sb.WriteString(sampleHeader + "\n")
	for i := 0; i < MaxRows+1; i++ {
		fmt.Fprintf(&sb, "%d,A vs B,Forum,,,,,,,\n", i+1)
	}
	if _, err := Parse("cases.csv", []byte(sb.String())); !errors.Is(err, ErrTooManyRows) {
		t.Fatalf("row gate: %v", err)
	}

	if _, err := Parse("cases.csv", []byte(sampleHeader+"\n")); !errors.Is(err, ErrNoData) {
		t.Fatalf("empty gate: %v", err)
	}
}

func TestParseXLSXPrefersSheet1(t *testing.T) {
	file := excelize.NewFile()
	if err := file.SetSheetName("Sheet1", "Notes"); err != nil {
		t.Fatalf("rename sheet: %v", err)
	}
	if _, err := file.NewSheet("Sheet1"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	_ = file.SetSheetRow("Notes", "A1", &[]interface{}{"scratch"})
	_ = file.SetSheetRow("Sheet1", "A1", &[]interface{}{"Parties", "Forum", "Amount involved"})
	_ = file.SetSheetRow("Sheet1", "A2", &[]interface{}{"A vs B", "High Court", 45000})

	buf, err := file.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}

	result, err := Parse("cases.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(result.Cases) != 1 {
		t.Fatalf("cases = %d, want 1", len(result.Cases))
	}
	got := result.Cases[0]
	if got.Parties != "A vs B" || got.Forum != "High Court" {
		t.Fatalf("wrong sheet parsed: %+v", got)
	}
	if got.AmountInvolved == nil || *got.AmountInvolved != 45000 {
		t.Fatalf("amount = %v", got.AmountInvolved)
	}
}
