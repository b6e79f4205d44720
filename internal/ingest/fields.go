package ingest

import "strings"

// Row is one spreadsheet row keyed by raw header text. Missing cells are
// present with an empty-string value so lookups are total.
type Row map[string]string

// Canonical target fields and the spreadsheet header spellings accepted for
// each, in match priority order. This table is the only schema knowledge the
// pipeline has; it is static configuration, never inferred from the file.
var (
	aliasesSrNo        = []string{"Sr. No.", "Sr No", "SrNo", "Sr.No.", "Serial No"}
	aliasesParties     = []string{"Parties", "Party", "parties"}
	aliasesForum       = []string{"Forum", "forum", "Court"}
	aliasesParticular  = []string{"Particular", "particular", "Particulars", "Details"}
	aliasesTreatment   = []string{"Treatment undertaken Resolution", "Treatment", "Resolution", "Treatment undertaken", "treatment_resolution"}
	aliasesRemarks     = []string{"Remarks", "remarks", "Remark", "Notes"}
	aliasesStartDate   = []string{"Start Date", "StartDate", "start_date", "Date of Filing"}
	aliasesLastHearing = []string{"Last Date of Hearing", "Last Hearing Date", "LastHearingDate", "last_hearing_date", "Last Hearing"}
	aliasesNextHearing = []string{"Next Date", "NextDate", "next_hearing_date", "Next Hearing Date", "Next Hearing"}
	aliasesAmount      = []string{"Amount involved", "Amount Involved", "AmountInvolved", "amount_involved", "Amount"}
)

// resolve returns the first non-empty cell whose header matches one of the
// aliases, comparing case-insensitively after trimming. Aliases are tried in
// priority order and headers in file order, so resolution is deterministic
// when a file carries two spellings of the same column.
func resolve(row Row, keys []string, aliases []string) string {
	for _, alias := range aliases {
		want := normalizeHeader(alias)
		for _, key := range keys {
			if normalizeHeader(key) != want {
				continue
			}
			if value := row[key]; value != "" {
				return value
			}
		}
	}
	return ""
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}
