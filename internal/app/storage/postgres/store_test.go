package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vitaltrack/healthd/internal/app/domain/document"
	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db), mock
}

func TestListVitalsScansSchemaFields(t *testing.T) {
	store, mock := newMockStore(t)

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_email", "entry_date", "systolic", "diastolic", "notes", "created_at"}).
		AddRow("id-1", "demo@local", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), int64(120), int64(80), "after run", created).
		AddRow("id-2", "demo@local", time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), int64(118), int64(78), nil, created)

	mock.ExpectQuery("SELECT id, user_email, entry_date, systolic, diastolic, notes, created_at").
		WithArgs("demo@local").
		WillReturnRows(rows)

	entries, err := store.ListVitals(context.Background(), vitals.KindBloodPressure, "demo@local")
	if err != nil {
		t.Fatalf("list vitals: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].EntryDate != "2024-03-01" {
		t.Fatalf("unexpected entry date %q", entries[0].EntryDate)
	}
	if entries[0].Value("systolic") != "120" || entries[0].Value("diastolic") != "80" {
		t.Fatalf("unexpected values %v", entries[0].Values)
	}
	if entries[1].Notes != "" {
		t.Fatalf("expected empty notes for NULL, got %q", entries[1].Notes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateVitalGeneratesIDAndTimestamp(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO weight_entries").
		WithArgs(sqlmock.AnyArg(), "demo@local", "2024-03-01", "72.50", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entry := vitals.Entry{
		OwnerKey:  "demo@local",
		EntryDate: "2024-03-01",
		Values:    map[string]string{"weight": "72.50"},
	}
	created, err := store.CreateVital(context.Background(), vitals.KindWeight, entry)
	if err != nil {
		t.Fatalf("create vital: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteVitalIgnoresMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM temperature_entries").
		WithArgs("missing", "demo@local").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteVital(context.Background(), vitals.KindTemperature, "missing", "demo@local"); err != nil {
		t.Fatalf("delete vital: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceVitalsRunsInTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM blood_pressure WHERE user_email").
		WithArgs("demo@local").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO blood_pressure").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO blood_pressure").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	entries := []vitals.Entry{
		{EntryDate: "2024-03-01", Values: map[string]string{"systolic": "120", "diastolic": "80"}},
		{EntryDate: "2024-03-02", Values: map[string]string{"systolic": "118", "diastolic": "76"}},
	}
	replaced, err := store.ReplaceVitals(context.Background(), vitals.KindBloodPressure, "demo@local", entries)
	if err != nil {
		t.Fatalf("replace vitals: %v", err)
	}
	if len(replaced) != 2 {
		t.Fatalf("expected 2 replaced entries, got %d", len(replaced))
	}
	for _, e := range replaced {
		if e.ID == "" || e.OwnerKey != "demo@local" {
			t.Fatalf("entry not normalized: %+v", e)
		}
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestReplaceVitalsRollsBackOnInsertFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM blood_pressure WHERE user_email").
		WithArgs("demo@local").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO blood_pressure").
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	entries := []vitals.Entry{
		{EntryDate: "2024-03-01", Values: map[string]string{"systolic": "120", "diastolic": "80"}},
	}
	if _, err := store.ReplaceVitals(context.Background(), vitals.KindBloodPressure, "demo@local", entries); err == nil {
		t.Fatal("expected insert failure to surface")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetDocumentScopedToOwner(t *testing.T) {
	store, mock := newMockStore(t)

	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_email", "entry_date", "doc_type", "file_name", "file_url", "file_size", "notes", "created_at"}).
		AddRow("doc-1", "demo@local", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "lab_report", "cbc.pdf", "https://blob.local/doc-1", "20480", nil, created)

	mock.ExpectQuery("SELECT id, user_email, entry_date, doc_type, file_name, file_url, file_size, notes, created_at").
		WithArgs("doc-1", "demo@local").
		WillReturnRows(rows)

	doc, err := store.GetDocument(context.Background(), "doc-1", "demo@local")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if doc.FileName != "cbc.pdf" || doc.EntryDate != "2024-03-01" {
		t.Fatalf("unexpected document %+v", doc)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateDocumentStoresNullableNotes(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(sqlmock.AnyArg(), "demo@local", "2024-03-01", "prescription", "rx.pdf", "https://blob.local/rx", "1024", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	doc := document.Document{
		OwnerKey:  "demo@local",
		EntryDate: "2024-03-01",
		DocType:   "prescription",
		FileName:  "rx.pdf",
		FileURL:   "https://blob.local/rx",
		FileSize:  "1024",
	}
	created, err := store.CreateDocument(context.Background(), doc)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated id")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureIdentityUsesUpsert(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "demo@local", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.EnsureIdentity(context.Background(), "demo@local", "Demo User"); err != nil {
		t.Fatalf("ensure identity: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
