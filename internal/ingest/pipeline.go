package ingest

import (
	"errors"
	"fmt"
	"strconv"

	"casedesk/api/internal/store"
)

const (
	// MaxFileBytes is the upload size ceiling.
	MaxFileBytes = 5 << 20
	// MaxRows is the data-row ceiling per upload, header excluded.
	MaxRows = 1000

	maxParties    = 500
	maxForum      = 200
	maxParticular = 1000
	maxTreatment  = 2000
	maxRemarks    = 2000

	// MaxAmount is the inclusive upper bound for amount_involved.
	MaxAmount = 999_999_999_999

	defaultStatus = "Active"
)

// Input rejections. These are reported to the uploader as-is and never reach
// the persistence layer.
var (
	ErrUnsupportedFileType = errors.New("unsupported file type, expected .xlsx, .xls or .csv")
	ErrFileTooLarge        = fmt.Errorf("file exceeds %d MB limit", MaxFileBytes>>20)
	ErrTooManyRows         = fmt.Errorf("file exceeds %d row limit", MaxRows)
	ErrNoData              = errors.New("file contains no data rows")
	ErrNoValidRows         = errors.New("no valid rows found, every row is missing parties or forum")
)

// Result is the outcome of a successful parse. Skipped counts rows discarded
// for missing required fields; AmountsDropped counts out-of-range amounts
// cleared from otherwise-kept rows. Both are surfaced to the uploader as
// non-fatal warnings.
type Result struct {
	Cases          []store.CaseInsert
	TotalRows      int
	Skipped        int
	AmountsDropped int
}

// Parse runs the full ingestion pipeline over an uploaded file: extension
// and size gates, sheet extraction, cell sanitization, header alias
// resolution, type coercion, truncation, and required-field filtering.
func Parse(filename string, data []byte) (*Result, error) {
	if len(data) > MaxFileBytes {
		return nil, ErrFileTooLarge
	}

	headers, rows, err := readRows(filename, data)
	if err != nil {
		return nil, err
	}
	if len(rows) > MaxRows {
		return nil, fmt.Errorf("%w: got %d rows", ErrTooManyRows, len(rows))
	}

	result := &Result{TotalRows: len(rows)}
	for i, raw := range rows {
		row := sanitizeRow(raw)

		record := store.CaseInsert{
			SrNo:                resolveSrNo(row, headers, i),
			Parties:             truncate(resolve(row, headers, aliasesParties), maxParties),
			Forum:               truncate(resolve(row, headers, aliasesForum), maxForum),
			Particular:          optional(truncate(resolve(row, headers, aliasesParticular), maxParticular)),
			StartDate:           coerceDate(resolve(row, headers, aliasesStartDate)),
			LastHearingDate:     coerceDate(resolve(row, headers, aliasesLastHearing)),
			NextHearingDate:     coerceDate(resolve(row, headers, aliasesNextHearing)),
			AmountInvolved:      coerceNumber(resolve(row, headers, aliasesAmount)),
			TreatmentResolution: optional(truncate(resolve(row, headers, aliasesTreatment), maxTreatment)),
			Remarks:             optional(truncate(resolve(row, headers, aliasesRemarks), maxRemarks)),
			Status:              defaultStatus,
		}

		if amount := record.AmountInvolved; amount != nil && (*amount < 0 || *amount > MaxAmount) {
			record.AmountInvolved = nil
			result.AmountsDropped++
		}

		if record.Parties == "" || record.Forum == "" {
			result.Skipped++
			continue
		}
		result.Cases = append(result.Cases, record)
	}

	if len(result.Cases) == 0 {
		return nil, fmt.Errorf("%w: %d rows discarded", ErrNoValidRows, result.Skipped)
	}
	return result, nil
}

// resolveSrNo reads the sequence-number column, falling back to the row's
// 1-based position when the column is absent or unparseable.
func resolveSrNo(row Row, headers []string, index int) *int {
	fallback := index + 1
	value := resolve(row, headers, aliasesSrNo)
	if value == "" {
		return &fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		if asFloat, ferr := strconv.ParseFloat(value, 64); ferr == nil {
			parsed = int(asFloat)
		} else {
			return &fallback
		}
	}
	return &parsed
}
