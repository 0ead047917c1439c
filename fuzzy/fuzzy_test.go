// CLAUDE:SUMMARY Tests for trigram similarity scoring and the title-backed suggestion cache.
package fuzzy

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/hazyhaar/caselaw/dbopen"
	"github.com/hazyhaar/caselaw/store"
	_ "modernc.org/sqlite"
)

// WHAT: similarity axioms the suggester relies on.
// WHY: suggestions are gated on a fixed threshold, so the score scale
// has to hold at its edges.
func TestSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"datenschutz", "datenschutz", 1.0},
		{"Datenschutz", "datenschutz", 1.0},
		{"", "datenschutz", 0.0},
		{"datenschutz", "", 0.0},
		{"", "", 0.0},
	}
	for _, c := range cases {
		if got := Similarity(c.a, c.b); got != c.want {
			t.Errorf("Similarity(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSimilarityTypo(t *testing.T) {
	got := Similarity("datenschutzxyz", "datenschutz")
	if got < Threshold {
		t.Errorf("Similarity(datenschutzxyz, datenschutz) = %v, want >= %v", got, Threshold)
	}
	if unrelated := Similarity("datenschutz", "mietrecht"); unrelated >= Threshold {
		t.Errorf("unrelated terms scored %v, want < %v", unrelated, Threshold)
	}
}

func TestSimilarityShortStrings(t *testing.T) {
	// Sub-trigram strings degenerate to whole-string sets.
	if got := Similarity("ab", "ab"); got != 1.0 {
		t.Errorf("identical short strings = %v, want 1.0", got)
	}
	if got := Similarity("ab", "cd"); got != 0.0 {
		t.Errorf("disjoint short strings = %v, want 0.0", got)
	}
}

func seedTitles(t *testing.T, titles []string) *sql.DB {
	t.Helper()
	db := dbopen.OpenMemory(t)
	if err := store.EnsureSchema(db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	recs := make([]store.Record, 0, len(titles))
	for i, title := range titles {
		recs = append(recs, store.Record{
			ID:            fmt.Sprintf("doc-%d", i),
			SourceID:      "bger",
			SourceName:    "Bundesgericht",
			Level:         "federal",
			Title:         title,
			URL:           "https://example.ch/" + fmt.Sprint(i),
			ContentText:   "body",
			ContentSHA256: "deadbeef",
			DecisionDate:  "2024-03-01",
			FetchedAt:     "2024-03-02T00:00:00Z",
			UpdatedAt:     "2024-03-02T00:00:00Z",
		})
	}
	if _, err := store.BulkInsert(context.Background(), db, recs, store.ModeSnapshot); err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	return db
}

func TestSuggest(t *testing.T) {
	db := seedTitles(t, []string{
		"Datenschutz im Arbeitsverhältnis",
		"Mietrecht und fristlose Kündigung",
	})
	cache := NewCache()
	ctx := context.Background()

	got, ok := cache.Suggest(ctx, db, "Datenschutzxyz")
	if !ok || got != "datenschutz" {
		t.Fatalf("Suggest(Datenschutzxyz) = %q, %v, want datenschutz, true", got, ok)
	}

	// Exact matches never suggest themselves.
	if got, ok := cache.Suggest(ctx, db, "datenschutz"); ok {
		t.Errorf("Suggest(exact term) = %q, want no suggestion", got)
	}

	// Nothing close: no suggestion.
	if got, ok := cache.Suggest(ctx, db, "zzzzzzzzz"); ok {
		t.Errorf("Suggest(gibberish) = %q, want no suggestion", got)
	}
}

func TestSuggestSkipsShortQueries(t *testing.T) {
	db := seedTitles(t, []string{"Datenschutz"})
	cache := NewCache()
	if got, ok := cache.Suggest(context.Background(), db, "ab"); ok {
		t.Errorf("Suggest(short query) = %q, want no suggestion", got)
	}
}

func TestCacheBuild(t *testing.T) {
	db := seedTitles(t, []string{
		"Datenschutz und die Verjährung",         // "und", "die" are stopwords
		"Haftung bei Kündigung (fristlos)",       // "bei" stopword, punctuation split
		"Der Bund vs. ZH",                        // everything too short or stopword
	})
	cache := NewCache()
	ctx := context.Background()
	if err := cache.Initialize(ctx, db); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if cache.Len() == 0 {
		t.Fatal("cache empty after initialize")
	}
	for _, want := range []string{"datenschutz", "verjährung", "haftung", "kündigung", "fristlos"} {
		if _, ok := cache.Suggest(ctx, db, want+"x"); !ok {
			t.Errorf("cache missing term close to %q", want)
		}
	}
	// Stopwords must not become suggestions.
	if got, ok := cache.Suggest(ctx, db, "unde"); ok && got == "und" {
		t.Errorf("stopword leaked into cache: %q", got)
	}
}

func TestCacheClearRebuilds(t *testing.T) {
	db := seedTitles(t, []string{"Datenschutz"})
	cache := NewCache()
	ctx := context.Background()
	if err := cache.Initialize(ctx, db); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	n := cache.Len()
	cache.Clear()
	if cache.Len() != 0 {
		t.Fatal("cache not empty after Clear")
	}
	if err := cache.Initialize(ctx, db); err != nil {
		t.Fatalf("re-initialize: %v", err)
	}
	if cache.Len() != n {
		t.Errorf("rebuild produced %d terms, want %d", cache.Len(), n)
	}
}

func TestSuggestTerms(t *testing.T) {
	db := seedTitles(t, []string{
		"Datenschutz im Arbeitsverhältnis",
		"Mietrecht und fristlose Kündigung",
	})
	cache := NewCache()
	got := cache.SuggestTerms(context.Background(), db, []string{"datenschutzx", "mietrechtx", "zzzz"}, 2)
	if len(got) != 2 {
		t.Fatalf("SuggestTerms returned %d pairs, want 2: %v", len(got), got)
	}
	if got[0].Suggestion != "datenschutz" || got[1].Suggestion != "mietrecht" {
		t.Errorf("unexpected suggestions: %v", got)
	}
}
