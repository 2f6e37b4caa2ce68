// Package app wires the record services together over a set of stores.
package app

import (
	"github.com/vitaltrack/healthd/internal/app/blob"
	blobmemory "github.com/vitaltrack/healthd/internal/app/blob/memory"
	"github.com/vitaltrack/healthd/internal/app/cache"
	"github.com/vitaltrack/healthd/internal/app/services/documents"
	"github.com/vitaltrack/healthd/internal/app/services/records"
	syncsvc "github.com/vitaltrack/healthd/internal/app/services/sync"
	"github.com/vitaltrack/healthd/internal/app/storage"
	"github.com/vitaltrack/healthd/internal/app/storage/memory"
	"github.com/vitaltrack/healthd/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Vitals     storage.VitalStore
	Documents  storage.DocumentStore
	Identities storage.IdentityStore
}

// Options carries optional collaborators. A nil Blobs falls back to the
// in-memory blob store; a nil Cache disables summary caching.
type Options struct {
	Blobs blob.Store
	Cache cache.Cache
}

// Application ties the record services together.
type Application struct {
	log *logger.Logger

	Records   *records.Service
	Documents *documents.Service
	Sync      *syncsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) *Application {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Vitals == nil {
		stores.Vitals = mem
	}
	if stores.Documents == nil {
		stores.Documents = mem
	}
	if stores.Identities == nil {
		stores.Identities = mem
	}
	if opts.Blobs == nil {
		opts.Blobs = blobmemory.New()
	}

	return &Application{
		log:       log,
		Records:   records.New(stores.Vitals, stores.Identities, log.Named("records")),
		Documents: documents.New(stores.Documents, stores.Identities, opts.Blobs, log.Named("documents")),
		Sync:      syncsvc.New(stores.Vitals, stores.Documents, stores.Identities, opts.Cache, log.Named("sync")),
	}
}
