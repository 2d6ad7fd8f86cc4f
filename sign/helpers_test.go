package sign

import (
	"strings"
	"testing"
	"time"
)

func TestPdfString(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"plain", "(plain)"},
		{"with (parens)", "(with \\(parens\\))"},
		{"back\\slash", "(back\\\\slash)"},
	}

	for _, tc := range cases {
		if got := pdfString(tc.input); got != tc.want {
			t.Errorf("pdfString(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}

	// Non-ASCII switches to a UTF-16BE hex string with a BOM.
	got := pdfString("São Paulo")
	if got != "<FEFF005300E3006F0020005000610075006C006F>" {
		t.Errorf("pdfString(São Paulo) = %q, want UTF-16BE hex string", got)
	}
}

func TestPdfStringCodeUnitsCollidingWithDelimiters(t *testing.T) {
	// The low byte of U+0429 is ')', of U+6728 is '('; a literal string
	// would terminate early on them.
	cases := []struct {
		input string
		want  string
	}{
		{"Щ", "<FEFF0429>"},
		{"木", "<FEFF6728>"},
		{"ЩУКИН", "<FEFF04290423041A0418041D>"},
	}

	for _, tc := range cases {
		got := pdfString(tc.input)
		if got != tc.want {
			t.Errorf("pdfString(%q) = %q, want %q", tc.input, got, tc.want)
		}
		if strings.ContainsAny(got, "()\\") {
			t.Errorf("pdfString(%q) = %q contains string delimiters", tc.input, got)
		}
	}
}

func TestPdfDateTime(t *testing.T) {
	date := time.Date(2024, 6, 1, 15, 4, 5, 0, time.FixedZone("BRT", -3*60*60))
	if got, want := pdfDateTime(date), "(D:20240601150405-03'00')"; got != want {
		t.Errorf("pdfDateTime = %q, want %q", got, want)
	}

	utc := time.Date(2024, 6, 1, 15, 4, 5, 0, time.UTC)
	if got, want := pdfDateTime(utc), "(D:20240601150405+00'00')"; got != want {
		t.Errorf("pdfDateTime = %q, want %q", got, want)
	}
}
