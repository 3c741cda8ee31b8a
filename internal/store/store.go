// Package store persists listings and cached provider responses.
package store

// RepairReport counts the rows visited and rewritten by a tag repair pass.
type RepairReport struct {
	Scanned  int
	Repaired int
}
