// CLAUDE:SUMMARY Normalization of raw exported decisions into canonical records with stable ids.
// Package pipeline builds the published artifacts: delta and snapshot
// SQLite databases from decision exports, compressed and described by
// file metadata for the manifest.
package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/caselaw/store"
)

// RawDecision is one decision as connectors export it. Beyond the canonical
// columns it accepts the legacy field names some upstream exports still use.
type RawDecision struct {
	store.Record
	PublishedDate string `json:"published_date,omitempty"`
	PDF           string `json:"pdf,omitempty"`
	Permalink     string `json:"permalink,omitempty"`
}

// Normalize maps a raw decision onto the canonical record. Missing
// content_sha256 is derived from the fields that change on updates;
// missing timestamps default to now; a missing id gets a stable UUIDv5
// from source id and URL, so re-ingesting the same decision never forks
// its identity.
func Normalize(d RawDecision) store.Record {
	r := d.Record
	now := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)

	if r.PublicationDate == "" && d.PublishedDate != "" {
		r.PublicationDate = d.PublishedDate
	}
	if r.PDFURL == "" && d.PDF != "" {
		r.PDFURL = d.PDF
	}
	if r.URL == "" && d.Permalink != "" {
		r.URL = d.Permalink
	}

	if r.ContentSHA256 == "" {
		sum := sha256.Sum256([]byte(r.ContentText + "\n" + r.Title + "\n" + r.Docket))
		r.ContentSHA256 = hex.EncodeToString(sum[:])
	}
	if r.FetchedAt == "" {
		r.FetchedAt = now
	}
	if r.UpdatedAt == "" {
		r.UpdatedAt = now
	}
	if r.ID == "" {
		r.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(r.SourceID+"\n"+r.URL)).String()
	}
	return r
}
