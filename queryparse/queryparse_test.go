package queryparse

import (
	"reflect"
	"strings"
	"testing"
)

func TestValidateEmptyQuery(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		r := Validate(q)
		if !r.Valid || r.Sanitized != "" {
			t.Errorf("Validate(%q) = %+v, want valid empty", q, r)
		}
	}
}

func TestUnclosedQuote(t *testing.T) {
	r := Validate(`"Datenschutz`)
	if r.Valid {
		t.Fatal("unclosed quote accepted")
	}
	if !strings.Contains(r.Error, "Unclosed quote starting at position 0") {
		t.Fatalf("error: %s", r.Error)
	}
	if r.Suggestion != `"Datenschutz"` {
		t.Fatalf("suggestion: %s", r.Suggestion)
	}
}

func TestEscapedQuoteIgnored(t *testing.T) {
	if r := Validate(`Namens\" AND Recht`); !r.Valid {
		t.Fatalf("escaped quote flagged: %+v", r)
	}
}

func TestUnclosedParenthesis(t *testing.T) {
	r := Validate("(Arbeitsrecht AND Kündigung")
	if r.Valid {
		t.Fatal("unclosed paren accepted")
	}
	if !strings.Contains(r.Error, "Unclosed parenthesis (1 missing)") {
		t.Fatalf("error: %s", r.Error)
	}
	if r.Suggestion != "(Arbeitsrecht AND Kündigung)" {
		t.Fatalf("suggestion: %s", r.Suggestion)
	}
}

func TestUnexpectedClosingParenthesis(t *testing.T) {
	r := Validate("Arbeitsrecht) AND Miete")
	if r.Valid {
		t.Fatal("stray close paren accepted")
	}
	if r.Suggestion != "Arbeitsrecht AND Miete" {
		t.Fatalf("suggestion: %s", r.Suggestion)
	}
}

func TestParensInsideQuotesIgnored(t *testing.T) {
	if r := Validate(`"Urteil (Auszug)" AND Miete`); !r.Valid {
		t.Fatalf("quoted parens flagged: %+v", r)
	}
}

func TestOperatorPlacement(t *testing.T) {
	cases := []struct {
		query   string
		errPart string
	}{
		{"AND Miete", "cannot start with AND"},
		{"Miete OR", "cannot end with OR"},
		{"Miete AND NOT", "cannot end with NOT"},
		{"Miete AND OR Pacht", "Consecutive operators: AND OR"},
	}
	for _, tc := range cases {
		r := Validate(tc.query)
		if r.Valid {
			t.Errorf("Validate(%q) accepted", tc.query)
			continue
		}
		if !strings.Contains(r.Error, tc.errPart) {
			t.Errorf("Validate(%q) error = %q, want %q", tc.query, r.Error, tc.errPart)
		}
	}
}

func TestPhraseAdjacentOperators(t *testing.T) {
	// Operators next to quoted phrases are legal positions.
	for _, q := range []string{`"fristlose Kündigung" AND Miete`, `Miete OR "fristlose Kündigung"`} {
		if r := Validate(q); !r.Valid {
			t.Errorf("Validate(%q) = %+v, want valid", q, r)
		}
	}
}

func TestOperatorsInsideQuotesAllowed(t *testing.T) {
	if r := Validate(`"Treu und Glauben AND" Miete`); !r.Valid {
		t.Fatalf("quoted operator flagged: %+v", r)
	}
}

func TestUnknownFieldPrefix(t *testing.T) {
	r := Validate("Kündigung AND canton:ZH")
	if r.Valid {
		t.Fatal("unknown column accepted")
	}
	if !strings.Contains(r.Error, "Unknown column 'canton'") {
		t.Fatalf("error: %s", r.Error)
	}
	if !strings.Contains(r.Error, "content_text, docket, title") {
		t.Fatalf("valid field list missing: %s", r.Error)
	}
}

func TestKnownFieldPrefixes(t *testing.T) {
	for _, q := range []string{"title:Miete", "docket:6B_102", "content_text:Erwägung", "TITLE:Miete"} {
		if r := Validate(q); !r.Valid {
			t.Errorf("Validate(%q) = %+v, want valid", q, r)
		}
	}
}

func TestSanitizeConnectors(t *testing.T) {
	cases := map[string]string{
		"Miete  und   Pacht":     "Miete AND Pacht",
		"Miete ODER Pacht":       "Miete OR Pacht",
		"Miete nicht Pacht":      "Miete NOT Pacht",
		"Miete && Pacht":         "Miete AND Pacht",
		"Miete || Pacht":         "Miete OR Pacht",
		"  Kündigung\t Fristen ": "Kündigung Fristen",
	}
	for in, want := range cases {
		if got := Sanitize(in); got != want {
			t.Errorf("Sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeDoesNotTouchSubstrings(t *testing.T) {
	// "und" as part of a word must survive.
	if got := Sanitize("Grundrecht"); got != "Grundrecht" {
		t.Fatalf("Sanitize mangled word: %q", got)
	}
}

func TestValidQueryReturnsSanitized(t *testing.T) {
	r := Validate("Miete und Pacht")
	if !r.Valid || r.Sanitized != "Miete AND Pacht" {
		t.Fatalf("got %+v", r)
	}
}

func TestSuggestionRoundTrip(t *testing.T) {
	// Every invalid query with a suggestion must validate after applying it.
	invalid := []string{
		`"Datenschutz`,
		"(Arbeitsrecht AND Kündigung",
		"((Miete",
		"Arbeitsrecht) Miete",
		"AND Miete",
		"Miete OR",
	}
	for _, q := range invalid {
		r := Validate(q)
		if r.Valid {
			t.Errorf("expected %q to be invalid", q)
			continue
		}
		if r.Suggestion == "" {
			t.Errorf("no suggestion for %q", q)
			continue
		}
		if fixed := Validate(r.Suggestion); !fixed.Valid {
			t.Errorf("suggestion %q for %q still invalid: %+v", r.Suggestion, q, fixed)
		}
	}
}

func TestExtractTerms(t *testing.T) {
	got := ExtractTerms(`title:Miete AND "fristlose Kündigung" OR (Pacht NOT x)`)
	want := []string{"Miete", "Pacht", "fristlose Kündigung"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("terms = %v, want %v", got, want)
	}
}

func TestExtractTermsEmpty(t *testing.T) {
	if got := ExtractTerms("  "); got != nil {
		t.Fatalf("want nil, got %v", got)
	}
}
