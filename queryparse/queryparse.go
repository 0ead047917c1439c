// CLAUDE:SUMMARY FTS query validation and repair: quote/paren scanners, operator placement, field prefixes, sanitizer.
// Package queryparse validates and normalizes raw full-text queries before
// they reach the ranking engine. Invalid syntax is reported with an
// actionable suggestion instead of an error from the search backend.
package queryparse

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Operators recognized by the boolean query syntax.
var operators = map[string]bool{
	"AND":  true,
	"OR":   true,
	"NOT":  true,
	"NEAR": true,
}

// searchableFields is the closed set of permitted field: prefixes.
var searchableFields = map[string]bool{
	"title":        true,
	"docket":       true,
	"content_text": true,
}

// Result reports the outcome of Validate. When Valid is false, Error
// describes the problem and Suggestion (if non-empty) is a repaired query
// that passes validation. When Valid is true, Sanitized is the normalized
// form to execute.
type Result struct {
	Valid      bool   `json:"valid"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Sanitized  string `json:"sanitized,omitempty"`
}

// Validate runs the syntax checks in order, short-circuiting on the first
// failure: quotes, parentheses, operator placement, field prefixes.
func Validate(query string) Result {
	q := strings.TrimSpace(query)
	if q == "" {
		return Result{Valid: true, Sanitized: ""}
	}

	if r, bad := checkQuotes(q); bad {
		return r
	}
	if r, bad := checkParens(q); bad {
		return r
	}
	if r, bad := checkOperators(q); bad {
		return r
	}
	if r, bad := checkFields(q); bad {
		return r
	}

	return Result{Valid: true, Sanitized: Sanitize(q)}
}

// scanState is the quote-tracking state machine shared by the quote and
// paren scanners: either normal text or inside a quote opened by quoteChar.
type scanState struct {
	inQuote   bool
	quoteChar byte
}

func (s *scanState) step(q string, i int) {
	c := q[i]
	if (c == '"' || c == '\'') && (i == 0 || q[i-1] != '\\') {
		switch {
		case !s.inQuote:
			s.inQuote = true
			s.quoteChar = c
		case c == s.quoteChar:
			s.inQuote = false
			s.quoteChar = 0
		}
	}
}

func checkQuotes(q string) (Result, bool) {
	var st scanState
	lastOpen := -1
	for i := 0; i < len(q); i++ {
		wasIn := st.inQuote
		st.step(q, i)
		if !wasIn && st.inQuote {
			lastOpen = i
		}
	}
	if !st.inQuote {
		return Result{}, false
	}
	return Result{
		Valid:      false,
		Error:      fmt.Sprintf("Unclosed quote starting at position %d", lastOpen),
		Suggestion: q + string(st.quoteChar),
	}, true
}

func checkParens(q string) (Result, bool) {
	var st scanState
	depth := 0
	for i := 0; i < len(q); i++ {
		st.step(q, i)
		if st.inQuote {
			continue
		}
		switch q[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return Result{
					Valid:      false,
					Error:      fmt.Sprintf("Unexpected closing parenthesis at position %d", i),
					Suggestion: q[:i] + q[i+1:],
				}, true
			}
		}
	}
	if depth > 0 {
		return Result{
			Valid:      false,
			Error:      fmt.Sprintf("Unclosed parenthesis (%d missing)", depth),
			Suggestion: q + strings.Repeat(")", depth),
		}, true
	}
	return Result{}, false
}

var (
	doubleQuoted = regexp.MustCompile(`"[^"]*"`)
	singleQuoted = regexp.MustCompile(`'[^']*'`)
	fieldPrefix  = regexp.MustCompile(`\b(\w+):`)
)

func checkOperators(q string) (Result, bool) {
	// Quoted spans collapse to a placeholder term so operator positions
	// relative to phrases are preserved.
	stripped := doubleQuoted.ReplaceAllString(q, " q ")
	stripped = singleQuoted.ReplaceAllString(stripped, " q ")
	tokens := strings.Fields(stripped)
	for i, tok := range tokens {
		upper := strings.ToUpper(tok)
		if !operators[upper] {
			continue
		}

		// An operator token at either edge sits in the raw query too: a
		// query beginning or ending with a quoted span yields the
		// placeholder there, never an operator.
		if i == 0 {
			r := Result{Valid: false, Error: fmt.Sprintf("Query cannot start with %s", upper)}
			if len(tokens) > 1 {
				r.Suggestion = strings.TrimSpace(q[len(tok):])
			}
			return r, true
		}
		if i == len(tokens)-1 {
			r := Result{Valid: false, Error: fmt.Sprintf("Query cannot end with %s", upper)}
			if len(tokens) > 1 {
				r.Suggestion = strings.TrimSpace(q[:len(q)-len(tok)])
			}
			return r, true
		}
		if i > 0 {
			if prev := strings.ToUpper(tokens[i-1]); operators[prev] {
				return Result{
					Valid: false,
					Error: fmt.Sprintf("Consecutive operators: %s %s", prev, upper),
				}, true
			}
		}
	}
	return Result{}, false
}

func checkFields(q string) (Result, bool) {
	for _, m := range fieldPrefix.FindAllStringSubmatch(q, -1) {
		field := strings.ToLower(m[1])
		if !searchableFields[field] {
			return Result{
				Valid: false,
				Error: fmt.Sprintf("Unknown column '%s'. Valid columns: %s", field, validFieldList()),
			}, true
		}
	}
	return Result{}, false
}

func validFieldList() string {
	fields := make([]string, 0, len(searchableFields))
	for f := range searchableFields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return strings.Join(fields, ", ")
}

var (
	whitespace   = regexp.MustCompile(`\s+`)
	connectorUnd = regexp.MustCompile(`(?i)\bund\b`)
	connectorOd  = regexp.MustCompile(`(?i)\boder\b`)
	connectorNi  = regexp.MustCompile(`(?i)\bnicht\b`)
)

// Sanitize normalizes whitespace and rewrites localized and symbolic
// connectors (und/oder/nicht, &&, ||) into canonical boolean operators.
func Sanitize(query string) string {
	q := strings.TrimSpace(query)
	if q == "" {
		return ""
	}
	q = whitespace.ReplaceAllString(q, " ")
	q = connectorUnd.ReplaceAllString(q, "AND")
	q = connectorOd.ReplaceAllString(q, "OR")
	q = connectorNi.ReplaceAllString(q, "NOT")
	q = strings.ReplaceAll(q, "&&", "AND")
	q = strings.ReplaceAll(q, "||", "OR")
	return q
}

// ExtractTerms strips quotes, operators, parentheses and field prefixes,
// returning the plain search terms (≥2 chars). Quoted multi-word phrases
// are preserved as single terms. Used by the fuzzy suggester.
func ExtractTerms(query string) []string {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	var phrases []string
	for _, m := range regexp.MustCompile(`"([^"]+)"`).FindAllStringSubmatch(query, -1) {
		phrases = append(phrases, m[1])
	}

	rest := doubleQuoted.ReplaceAllString(query, " ")
	rest = fieldPrefix.ReplaceAllString(rest, "")
	for op := range operators {
		rest = regexp.MustCompile(`(?i)\b`+op+`\b`).ReplaceAllString(rest, " ")
	}
	rest = strings.NewReplacer("(", " ", ")", " ").Replace(rest)

	var terms []string
	for _, tok := range strings.Fields(rest) {
		if len(tok) >= 2 {
			terms = append(terms, tok)
		}
	}
	for _, p := range phrases {
		if p = strings.TrimSpace(p); len(p) >= 2 {
			terms = append(terms, p)
		}
	}
	return terms
}
