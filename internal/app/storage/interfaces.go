// Package storage defines the persistence gateway contracts. Implementations
// live in the memory and postgres subpackages.
package storage

import (
	"context"

	"github.com/vitaltrack/healthd/internal/app/domain/document"
	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
)

// VitalStore persists numeric measurement records. List results are ordered
// entry_date descending with created_at descending breaking ties. Deletes are
// scoped to (id, owner key) and are a no-op when no such row exists.
type VitalStore interface {
	ListVitals(ctx context.Context, kind vitals.Kind, ownerKey string) ([]vitals.Entry, error)
	CreateVital(ctx context.Context, kind vitals.Kind, entry vitals.Entry) (vitals.Entry, error)
	DeleteVital(ctx context.Context, kind vitals.Kind, id, ownerKey string) error
	CountVitals(ctx context.Context, kind vitals.Kind, ownerKey string) (int, error)

	// ReplaceVitals deletes every record of the kind for the owner and inserts
	// the supplied entries with fresh ids, as one transaction per kind; a
	// failure rolls the kind back to its prior state.
	ReplaceVitals(ctx context.Context, kind vitals.Kind, ownerKey string, entries []vitals.Entry) ([]vitals.Entry, error)
}

// DocumentStore persists document rows. The blob bytes themselves live behind
// the blob store adapter, referenced by FileURL.
type DocumentStore interface {
	ListDocuments(ctx context.Context, ownerKey string) ([]document.Document, error)
	CreateDocument(ctx context.Context, doc document.Document) (document.Document, error)
	// GetDocument returns sql.ErrNoRows when the id does not exist for the owner.
	GetDocument(ctx context.Context, id, ownerKey string) (document.Document, error)
	DeleteDocument(ctx context.Context, id, ownerKey string) error
	CountDocuments(ctx context.Context, ownerKey string) (int, error)
}

// IdentityStore records the identities that own records. Identities are
// created implicitly on first write; record tables reference the owner key by
// value only, with no referential integrity at the data layer.
type IdentityStore interface {
	EnsureIdentity(ctx context.Context, ownerKey, name string) error
}
