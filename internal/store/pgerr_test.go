package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsPermissionDenied(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "insufficient privilege", err: &pgconn.PgError{Code: "42501"}, want: true},
		{name: "wrapped insufficient privilege", err: fmt.Errorf("bulk insert: %w", &pgconn.PgError{Code: "42501"}), want: true},
		{name: "other sqlstate", err: &pgconn.PgError{Code: "23505"}, want: false},
		{name: "plain error", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPermissionDenied(tc.err); got != tc.want {
				t.Fatalf("IsPermissionDenied(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestParseTextArray(t *testing.T) {
	cases := []struct {
		input string
		want  int
	}{
		{input: "{}", want: 0},
		{input: "{add_dispute}", want: 1},
		{input: "{add_dispute,export_reports,upload_excel_litigation}", want: 3},
	}
	for _, tc := range cases {
		got := parseTextArray(tc.input)
		if len(got) != tc.want {
			t.Fatalf("parseTextArray(%q) = %v, want %d entries", tc.input, got, tc.want)
		}
	}
	parsed := parseTextArray("{add_dispute,export_reports}")
	if parsed[0] != "add_dispute" || parsed[1] != "export_reports" {
		t.Fatalf("unexpected entries: %v", parsed)
	}
}
