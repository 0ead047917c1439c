// CLAUDE:SUMMARY Sentinel errors for the caselaw service: missing dataset, bad input.
package caselaw

import "errors"

// ErrNotInstalled is returned when no snapshot has been installed yet.
// Run Update first.
var ErrNotInstalled = errors.New("caselaw: dataset not installed")

// ErrInvalidQuery is returned when a query fails syntax validation in a
// context that has no structured error response (export, CLI).
var ErrInvalidQuery = errors.New("caselaw: invalid query syntax")
