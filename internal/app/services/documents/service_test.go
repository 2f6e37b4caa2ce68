package documents

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/vitaltrack/healthd/internal/app/blob"
	blobmemory "github.com/vitaltrack/healthd/internal/app/blob/memory"
	"github.com/vitaltrack/healthd/internal/app/identity"
	"github.com/vitaltrack/healthd/internal/app/storage/memory"
	"github.com/vitaltrack/healthd/internal/apperrors"
)

var demo = identity.Caller{OwnerKey: "demo@local", Name: "Demo User"}

func newService() (*Service, *blobmemory.Store) {
	store := memory.New()
	blobs := blobmemory.New()
	return New(store, store, blobs, nil), blobs
}

func validInput() Input {
	return Input{
		EntryDate:   "2024-03-01",
		DocType:     "lab_report",
		FileName:    "cbc.pdf",
		ContentType: "application/pdf",
	}
}

func TestCreateStoresBlobThenRow(t *testing.T) {
	svc, blobs := newService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, demo, validInput(), strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if doc.ID == "" || doc.FileURL == "" {
		t.Fatalf("expected generated id and url, got %+v", doc)
	}
	if doc.FileSize != "9" {
		t.Fatalf("expected textual byte count \"9\", got %q", doc.FileSize)
	}
	if _, ok := blobs.Get(doc.FileURL); !ok {
		t.Fatal("blob missing for stored document")
	}

	docs, err := svc.List(ctx, demo)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != doc.ID {
		t.Fatalf("unexpected listing %+v", docs)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cases := []struct {
		name  string
		input Input
		file  io.Reader
	}{
		{"missing entry_date", Input{DocType: "x", FileName: "f.pdf"}, strings.NewReader("a")},
		{"missing doc_type", Input{EntryDate: "2024-03-01", FileName: "f.pdf"}, strings.NewReader("a")},
		{"missing file", validInput(), nil},
		{"empty file", validInput(), strings.NewReader("")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, demo, tc.input, tc.file)
			if apperrors.KindOf(err) != apperrors.KindValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDeleteRemovesBlobAndRow(t *testing.T) {
	svc, blobs := newService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, demo, validInput(), strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, demo, doc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if blobs.Len() != 0 {
		t.Fatal("blob should be removed with the row")
	}

	count, err := svc.Count(ctx, demo)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 documents, got %d", count)
	}
}

func TestDeleteMissingRowIsNoOp(t *testing.T) {
	svc, _ := newService()
	if err := svc.Delete(context.Background(), demo, "does-not-exist"); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestDeleteForeignOwnerLeavesDocument(t *testing.T) {
	svc, blobs := newService()
	ctx := context.Background()
	other := identity.Caller{OwnerKey: "other@local", Name: "Other"}

	doc, err := svc.Create(ctx, demo, validInput(), strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, other, doc.ID); err != nil {
		t.Fatalf("cross-owner delete should be acknowledged, got %v", err)
	}
	if blobs.Len() != 1 {
		t.Fatal("foreign delete must not touch the blob")
	}

	docs, err := svc.List(ctx, demo)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 {
		t.Fatal("document must survive a foreign owner's delete")
	}
}

func TestDeleteToleratesAlreadyMissingBlob(t *testing.T) {
	svc, blobs := newService()
	ctx := context.Background()

	doc, err := svc.Create(ctx, demo, validInput(), strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := blobs.Delete(ctx, doc.FileURL); err != nil {
		t.Fatalf("pre-delete blob: %v", err)
	}

	if err := svc.Delete(ctx, demo, doc.ID); err != nil {
		t.Fatalf("delete with missing blob should be satisfied, got %v", err)
	}
}

type failingBlobStore struct {
	blob.Store
	err error
}

func (f failingBlobStore) Delete(ctx context.Context, url string) error { return f.err }

func TestDeleteSurfacesBlobFailure(t *testing.T) {
	store := memory.New()
	blobs := blobmemory.New()
	svc := New(store, store, failingBlobStore{Store: blobs, err: errors.New("bucket unreachable")}, nil)
	ctx := context.Background()

	doc, err := svc.Create(ctx, demo, validInput(), strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(ctx, demo, doc.ID); apperrors.KindOf(err) != apperrors.KindStorage {
		t.Fatalf("expected storage error, got %v", err)
	}

	docs, err := svc.List(ctx, demo)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 1 {
		t.Fatal("row must remain when blob deletion fails")
	}
}
