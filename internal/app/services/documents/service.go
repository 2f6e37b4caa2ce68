// Package documents implements the document record service: rows in the
// document store referencing uploaded bytes behind the blob store.
package documents

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/vitaltrack/healthd/internal/app/blob"
	"github.com/vitaltrack/healthd/internal/app/domain/document"
	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
	"github.com/vitaltrack/healthd/internal/app/identity"
	"github.com/vitaltrack/healthd/internal/app/storage"
	"github.com/vitaltrack/healthd/internal/apperrors"
	"github.com/vitaltrack/healthd/pkg/logger"
)

// Input is an unvalidated document create payload. File bytes travel
// separately as a reader.
type Input struct {
	EntryDate   string
	DocType     string
	FileName    string
	ContentType string
	Notes       string
}

type Service struct {
	store      storage.DocumentStore
	identities storage.IdentityStore
	blobs      blob.Store
	log        *logger.Logger
}

func New(store storage.DocumentStore, identities storage.IdentityStore, blobs blob.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("documents")
	}
	return &Service{store: store, identities: identities, blobs: blobs, log: log}
}

func (s *Service) List(ctx context.Context, caller identity.Caller) ([]document.Document, error) {
	docs, err := s.store.ListDocuments(ctx, caller.OwnerKey)
	if err != nil {
		s.log.WithError(err).Error("list documents failed")
		return nil, apperrors.Storage("list documents", err)
	}
	return docs, nil
}

// Create stores the file bytes first, then persists the row referencing the
// returned handle. A row-insert failure after a successful blob write leaves
// the blob orphaned; that gap is accepted, not papered over with a rollback.
func (s *Service) Create(ctx context.Context, caller identity.Caller, input Input, file io.Reader) (document.Document, error) {
	if input.EntryDate == "" {
		return document.Document{}, apperrors.Validation("entry_date is required")
	}
	if _, err := time.Parse(vitals.DateLayout, input.EntryDate); err != nil {
		return document.Document{}, apperrors.Validationf("entry_date %q is not a calendar date", input.EntryDate)
	}
	if input.DocType == "" {
		return document.Document{}, apperrors.Validation("doc_type is required")
	}
	if input.FileName == "" || file == nil {
		return document.Document{}, apperrors.Validation("file is required")
	}

	// The empty-file check must happen before any storage call, so the bytes
	// are buffered here rather than streamed into the blob store.
	data, err := io.ReadAll(file)
	if err != nil {
		return document.Document{}, apperrors.Storage("read file", err)
	}
	if len(data) == 0 {
		return document.Document{}, apperrors.Validation("file is empty")
	}

	if err := s.identities.EnsureIdentity(ctx, caller.OwnerKey, caller.Name); err != nil {
		s.log.WithError(err).Error("ensure identity failed")
		return document.Document{}, apperrors.Storage("ensure identity", err)
	}

	obj, err := s.blobs.Put(ctx, input.FileName, input.ContentType, bytes.NewReader(data))
	if err != nil {
		s.log.WithError(err).WithField("file", input.FileName).Error("blob write failed")
		return document.Document{}, apperrors.Storage("store file", err)
	}

	created, err := s.store.CreateDocument(ctx, document.Document{
		OwnerKey:  caller.OwnerKey,
		EntryDate: input.EntryDate,
		DocType:   input.DocType,
		FileName:  input.FileName,
		FileURL:   obj.URL,
		FileSize:  strconv.FormatInt(obj.Size, 10),
		Notes:     input.Notes,
	})
	if err != nil {
		s.log.WithError(err).WithField("url", obj.URL).Error("document insert failed after blob write; blob orphaned")
		return document.Document{}, apperrors.Storage("create document", err)
	}

	s.log.WithField("id", created.ID).WithField("size", created.FileSize).Debug("document created")
	return created, nil
}

// Delete removes the blob first, then the row. A missing row is a no-op with
// no blob lookup; a blob already gone counts as satisfied, but any other blob
// failure stops the row deletion.
func (s *Service) Delete(ctx context.Context, caller identity.Caller, id string) error {
	doc, err := s.store.GetDocument(ctx, id, caller.OwnerKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		s.log.WithError(err).WithField("id", id).Error("document lookup failed")
		return apperrors.Storage("lookup document", err)
	}

	if err := s.blobs.Delete(ctx, doc.FileURL); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.log.WithError(err).WithField("url", doc.FileURL).Error("blob delete failed")
		return apperrors.Storage("delete file", err)
	}

	if err := s.store.DeleteDocument(ctx, id, caller.OwnerKey); err != nil {
		s.log.WithError(err).WithField("id", id).Error("document delete failed")
		return apperrors.Storage("delete document", err)
	}
	return nil
}

func (s *Service) Count(ctx context.Context, caller identity.Caller) (int, error) {
	count, err := s.store.CountDocuments(ctx, caller.OwnerKey)
	if err != nil {
		return 0, apperrors.Storage("count documents", err)
	}
	return count, nil
}
