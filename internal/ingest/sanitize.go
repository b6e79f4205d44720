package ingest

import (
	"strconv"
	"strings"
)

// SanitizeCell guards against spreadsheet formula injection: cells starting
// with =, +, - or @ would execute as formulas if the data were re-exported,
// so one leading formula character is stripped and the remainder trimmed.
// Purely numeric cells pass through untouched — a negative amount is a
// value, not a formula, and must survive for range validation to see it.
func SanitizeCell(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return trimmed
	}
	switch trimmed[0] {
	case '=', '+', '-', '@':
		trimmed = strings.TrimSpace(trimmed[1:])
	}
	return trimmed
}

func sanitizeRow(row Row) Row {
	sanitized := make(Row, len(row))
	for key, value := range row {
		sanitized[key] = SanitizeCell(value)
	}
	return sanitized
}
