// Package id generates the identifiers for job runs and client orders.
package id

import "github.com/oklog/ulid/v2"

// New returns a ULID string. IDs are time-sortable and stay monotonic within
// a millisecond, so the run journal is naturally ordered under its plain
// primary-key index.
func New() string {
	return ulid.Make().String()
}
