// CLAUDE:SUMMARY Trigram Jaccard similarity and a lazily built capped term cache for did-you-mean suggestions.
// Package fuzzy produces "did you mean" suggestions for zero-result queries
// using Jaccard similarity over character trigram sets. The term cache is an
// explicit object with its own lock and lifecycle so tests and services can
// hold independent instances.
package fuzzy

import (
	"context"
	"database/sql"
	"strings"
	"sync"
)

const (
	// Threshold is the minimum similarity for a suggestion.
	Threshold = 0.4
	// MaxCachedTerms caps the lazily built term cache.
	MaxCachedTerms = 10000

	minTermLen        = 4
	lengthWindow      = 5
	lengthWindowMulti = 4
)

// stopwords are common German and English words excluded from the cache.
var stopwords = map[string]bool{
	"und": true, "der": true, "die": true, "das": true, "von": true,
	"vom": true, "den": true, "dem": true, "des": true, "ein": true,
	"eine": true, "einer": true, "eines": true, "mit": true, "bei": true,
	"auf": true, "aus": true, "für": true, "zur": true, "zum": true,
	"als": true, "bis": true, "nach": true, "über": true, "unter": true,
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true,
}

// trigrams returns the set of 3-character substrings of s (lowercased).
// Strings shorter than 3 characters degenerate to a single-element set
// containing the whole string.
func trigrams(s string) map[string]bool {
	s = strings.ToLower(strings.TrimSpace(s))
	r := []rune(s)
	if len(r) < 3 {
		return map[string]bool{s: true}
	}
	set := make(map[string]bool, len(r)-2)
	for i := 0; i+3 <= len(r); i++ {
		set[string(r[i:i+3])] = true
	}
	return set
}

// Similarity computes the trigram Jaccard similarity of a and b in [0, 1].
// Case-insensitively identical strings score exactly 1.0; empty inputs 0.0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}
	if strings.EqualFold(a, b) {
		return 1.0
	}

	ta, tb := trigrams(a), trigrams(b)
	intersection := 0
	for t := range ta {
		if tb[t] {
			intersection++
		}
	}
	union := len(ta) + len(tb) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// Cache holds distinct corpus terms for fuzzy matching. Built lazily on
// first use, rebuilt only after Clear. Safe for concurrent use.
type Cache struct {
	mu          sync.Mutex
	terms       []string
	initialized bool
}

// NewCache returns an empty, uninitialized cache.
func NewCache() *Cache { return &Cache{} }

// Initialize loads the term cache from decision titles: distinct lowercased
// words of at least 4 characters, stopwords excluded, capped at
// MaxCachedTerms. Idempotent; concurrent callers share one build.
func (c *Cache) Initialize(ctx context.Context, db *sql.DB) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return nil
	}

	rows, err := db.QueryContext(ctx, `
		SELECT title FROM decisions
		WHERE title IS NOT NULL AND title != ''
		ORDER BY decision_date DESC
		LIMIT 100000`)
	if err != nil {
		return err
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() && len(c.terms) < MaxCachedTerms {
		var title string
		if err := rows.Scan(&title); err != nil {
			return err
		}
		for _, word := range splitWords(title) {
			if len([]rune(word)) < minTermLen || stopwords[word] || seen[word] {
				continue
			}
			seen[word] = true
			c.terms = append(c.terms, word)
			if len(c.terms) >= MaxCachedTerms {
				break
			}
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	c.initialized = true
	return nil
}

// Clear empties the cache; the next use rebuilds it. Wired to the
// updater's swap callback so suggestions follow the installed corpus.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.terms = nil
	c.initialized = false
	c.mu.Unlock()
}

// Len reports the number of cached terms (0 before initialization).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.terms)
}

func splitWords(s string) []string {
	s = strings.ToLower(s)
	return strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case ',', '.', '(', ')', ';', ':', '/', '«', '»', '"', '\'':
			return true
		}
		return r == ' ' || r == '\t' || r == '\n'
	})
}

// Suggest returns the best cached term for query if its similarity reaches
// Threshold and it differs from the query. Call only after a query
// legitimately returned zero hits.
func (c *Cache) Suggest(ctx context.Context, db *sql.DB, query string) (string, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if len([]rune(q)) < 3 {
		return "", false
	}
	if err := c.Initialize(ctx, db); err != nil {
		return "", false
	}

	c.mu.Lock()
	terms := c.terms
	c.mu.Unlock()

	best, bestScore := "", 0.0
	qLen := len([]rune(q))
	for _, term := range terms {
		// Cheap pre-filter: lengths within a small window.
		d := len([]rune(term)) - qLen
		if d > lengthWindow || d < -lengthWindow {
			continue
		}
		if score := Similarity(q, term); score > bestScore {
			bestScore = score
			best = term
		}
	}
	if bestScore >= Threshold && best != "" && best != q {
		return best, true
	}
	return "", false
}

// SuggestTerms returns up to limit (original, suggestion) pairs for the
// given terms, used when a multi-term query came back empty.
type TermSuggestion struct {
	Term       string `json:"term"`
	Suggestion string `json:"suggestion"`
}

func (c *Cache) SuggestTerms(ctx context.Context, db *sql.DB, terms []string, limit int) []TermSuggestion {
	if len(terms) == 0 || limit <= 0 {
		return nil
	}
	if err := c.Initialize(ctx, db); err != nil {
		return nil
	}

	c.mu.Lock()
	cached := c.terms
	c.mu.Unlock()

	var out []TermSuggestion
	for _, term := range terms {
		q := strings.ToLower(term)
		qLen := len([]rune(q))
		if qLen < 3 {
			continue
		}

		best, bestScore := "", 0.0
		for _, t := range cached {
			d := len([]rune(t)) - qLen
			if d > lengthWindowMulti || d < -lengthWindowMulti {
				continue
			}
			if t == q {
				continue
			}
			if score := Similarity(q, t); score > bestScore {
				bestScore = score
				best = t
			}
		}
		if bestScore >= Threshold && best != "" {
			out = append(out, TermSuggestion{Term: term, Suggestion: best})
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}
