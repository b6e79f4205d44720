package ingest

import "testing"

func TestSanitizeCell(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "formula equals", input: "=SUM(A1:A9)", want: "SUM(A1:A9)"},
		{name: "formula plus", input: "+cmd|' /C calc'!A0", want: "cmd|' /C calc'!A0"},
		{name: "formula at", input: "@SUM(1+1)", want: "SUM(1+1)"},
		{name: "leading dash text", input: "-delete everything", want: "delete everything"},
		{name: "negative number kept", input: "-50", want: "-50"},
		{name: "plain text trimmed", input: "  State Bank vs Acme  ", want: "State Bank vs Acme"},
		{name: "strips one character only", input: "==2+2", want: "=2+2"},
		{name: "empty", input: "", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SanitizeCell(tc.input)
			if got != tc.want {
				t.Fatalf("SanitizeCell(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestCoerceDate(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "day first dashes", input: "15-01-2024", want: "2024-01-15"},
		{name: "day first slashes", input: "5/3/2024", want: "2024-03-05"},
		{name: "iso passthrough", input: "2024-06-30", want: "2024-06-30"},
		{name: "excel serial", input: "45292", want: "2024-01-01"},
		{name: "long form", input: "02 Jan 2024", want: "2024-01-02"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := coerceDate(tc.input)
			if got == nil {
				t.Fatalf("coerceDate(%q) = nil, want %q", tc.input, tc.want)
			}
			if *got != tc.want {
				t.Fatalf("coerceDate(%q) = %q, want %q", tc.input, *got, tc.want)
			}
		})
	}

	for _, input := range []string{"", "not a date", "hearing pending"} {
		if got := coerceDate(input); got != nil {
			t.Fatalf("coerceDate(%q) = %q, want nil", input, *got)
		}
	}
}

func TestCoerceNumber(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  float64
	}{
		{name: "plain integer", input: "1000", want: 1000},
		{name: "decimal", input: "99.99", want: 99.99},
		{name: "negative", input: "-50", want: -50},
		{name: "rupee grouping", input: "₹12,34,567.50", want: 1234567.50},
		{name: "dollar with space", input: "$ 2500", want: 2500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := coerceNumber(tc.input)
			if got == nil {
				t.Fatalf("coerceNumber(%q) = nil, want %v", tc.input, tc.want)
			}
			if *got != tc.want {
				t.Fatalf("coerceNumber(%q) = %v, want %v", tc.input, *got, tc.want)
			}
		})
	}

	for _, input := range []string{"", "N/A", "pending"} {
		if got := coerceNumber(input); got != nil {
			t.Fatalf("coerceNumber(%q) = %v, want nil", input, *got)
		}
	}
}

func TestResolveHeaderSynonyms(t *testing.T) {
	headers := []string{" PARTIES ", "Court", "Details", "Amount"}
	row := Row{
		" PARTIES ": "A vs B",
		"Court":     "High Court",
		"Details":   "Recovery suit",
		"Amount":    "5000",
	}

	if got := resolve(row, headers, aliasesParties); got != "A vs B" {
		t.Fatalf("parties = %q", got)
	}
	if got := resolve(row, headers, aliasesForum); got != "High Court" {
		t.Fatalf("forum = %q", got)
	}
	if got := resolve(row, headers, aliasesParticular); got != "Recovery suit" {
		t.Fatalf("particular = %q", got)
	}
	if got := resolve(row, headers, aliasesAmount); got != "5000" {
		t.Fatalf("amount = %q", got)
	}
	if got := resolve(row, headers, aliasesRemarks); got != "" {
		t.Fatalf("remarks = %q, want empty", got)
	}
}

func TestResolveFirstNonEmptyWins(t *testing.T) {
	headers := []string{"Parties", "Party"}
	row := Row{"Parties": "", "Party": "fallback"}
	if got := resolve(row, headers, aliasesParties); got != "fallback" {
		t.Fatalf("resolve = %q, want fallback", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  hello  ", 10); got != "hello" {
		t.Fatalf("truncate = %q", got)
	}
	long := make([]rune, 600)
	for i := range long {
		long[i] = 'क'
	}
	got := truncate(string(long), 500)
	if runes := []rune(got); len(runes) != 500 {
		t.Fatalf("truncated length = %d, want 500", len(runes))
	}
}
