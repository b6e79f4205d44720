package ingest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ddMMYYYY    = regexp.MustCompile(`^([0-3]?\d)[-/](0?\d|1[0-2])[-/](\d{4})$`)
	nonNumeric  = regexp.MustCompile(`[^0-9.-]`)
	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02",
		"02 Jan 2006",
		"2 January 2006",
		"Jan 2, 2006",
		"January 2, 2006",
	}
)

// coerceDate interprets a cell as a calendar date and normalizes it to an
// ISO 8601 date string at midnight UTC. Accepted inputs, in order: an Excel
// serial date number, a dd-mm-yyyy / dd/mm/yyyy string, and a small set of
// general date layouts. Anything else yields nil — an unreadable date never
// fails the row.
func coerceDate(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}

	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil {
		parsed, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return nil
		}
		return isoDate(parsed.Year(), int(parsed.Month()), parsed.Day())
	}

	if match := ddMMYYYY.FindStringSubmatch(trimmed); match != nil {
		day, _ := strconv.Atoi(match[1])
		month, _ := strconv.Atoi(match[2])
		year, _ := strconv.Atoi(match[3])
		return isoDate(year, month, day)
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			return isoDate(parsed.Year(), int(parsed.Month()), parsed.Day())
		}
	}

	return nil
}

// isoDate renders the given calendar day in UTC, independent of the local
// timezone. Out-of-range components normalize the same way time.Date does.
func isoDate(year, month, day int) *string {
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	formatted := date.Format("2006-01-02")
	return &formatted
}

// coerceNumber parses a cell as a number, tolerating currency symbols and
// thousands separators by discarding every character that is not a digit, a
// minus sign, or a decimal point. Unparseable input yields nil.
func coerceNumber(value string) *float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	cleaned := nonNumeric.ReplaceAllString(trimmed, "")
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// truncate caps a string at max runes after trimming.
func truncate(value string, max int) string {
	trimmed := strings.TrimSpace(value)
	runes := []rune(trimmed)
	if len(runes) > max {
		trimmed = strings.TrimSpace(string(runes[:max]))
	}
	return trimmed
}

// optional converts a truncated text field to its stored form: empty
// becomes absent rather than empty string.
func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
