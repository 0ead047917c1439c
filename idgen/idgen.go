// CLAUDE:SUMMARY Time-sortable ID generation for event and request identifiers.
// Package idgen produces the identifiers used for logged events and HTTP
// requests. IDs are RFC 9562 UUIDv7 strings, so sorting by ID sorts by
// creation time; prefixed variants scope them by kind ("evt_", "req_").
package idgen

import "github.com/google/uuid"

// Generator produces unique string identifiers. Components take one at
// construction time, so tests can substitute deterministic IDs.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the generator used when nothing else is configured.
var Default Generator = UUIDv7()
