// Package document holds the domain model for uploaded health documents.
package document

import "time"

// Document references an uploaded file stored in the blob store. FileURL is
// the opaque handle into that store; FileSize is kept as the textual byte
// count the reference wire format uses.
type Document struct {
	ID        string
	OwnerKey  string
	EntryDate string
	DocType   string
	FileName  string
	FileURL   string
	FileSize  string
	Notes     string
	CreatedAt time.Time
}
