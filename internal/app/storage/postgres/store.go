// Package postgres implements the storage interfaces backed by PostgreSQL.
// All vital-sign SQL is generated from the vitals schema descriptors so the
// three record families share one implementation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/vitaltrack/healthd/internal/app/domain/document"
	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
	"github.com/vitaltrack/healthd/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sqlx.DB
}

var _ storage.VitalStore = (*Store)(nil)
var _ storage.DocumentStore = (*Store)(nil)
var _ storage.IdentityStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// NewFromDB wraps a plain database handle. Used by tests that drive the store
// through sqlmock.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: sqlx.NewDb(db, "postgres")}
}

// PoolConfig bounds the connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL, applies pool limits, and verifies the
// connection.
func Open(ctx context.Context, dsn string, pool PoolConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// --- VitalStore -------------------------------------------------------------

func (s *Store) ListVitals(ctx context.Context, kind vitals.Kind, ownerKey string) ([]vitals.Entry, error) {
	sch, ok := vitals.SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown vital kind %q", kind)
	}

	query := fmt.Sprintf(`
		SELECT id, user_email, entry_date, %s, notes, created_at
		FROM %s
		WHERE user_email = $1
		ORDER BY entry_date DESC, created_at DESC
	`, strings.Join(sch.FieldNames(), ", "), sch.Table)

	rows, err := s.db.QueryContext(ctx, query, ownerKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []vitals.Entry
	for rows.Next() {
		entry, err := scanEntry(rows, sch)
		if err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (s *Store) CreateVital(ctx context.Context, kind vitals.Kind, entry vitals.Entry) (vitals.Entry, error) {
	sch, ok := vitals.SchemaFor(kind)
	if !ok {
		return vitals.Entry{}, fmt.Errorf("unknown vital kind %q", kind)
	}

	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	if err := insertEntry(ctx, s.db, sch, entry); err != nil {
		return vitals.Entry{}, err
	}
	return entry, nil
}

func (s *Store) DeleteVital(ctx context.Context, kind vitals.Kind, id, ownerKey string) error {
	sch, ok := vitals.SchemaFor(kind)
	if !ok {
		return fmt.Errorf("unknown vital kind %q", kind)
	}

	// Deleting an absent or non-owned row is a no-op by contract, so the
	// affected-row count is deliberately not checked.
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE id = $1 AND user_email = $2
	`, sch.Table), id, ownerKey)
	return err
}

func (s *Store) CountVitals(ctx context.Context, kind vitals.Kind, ownerKey string) (int, error) {
	sch, ok := vitals.SchemaFor(kind)
	if !ok {
		return 0, fmt.Errorf("unknown vital kind %q", kind)
	}

	var count int
	err := s.db.GetContext(ctx, &count, fmt.Sprintf(`
		SELECT count(*) FROM %s WHERE user_email = $1
	`, sch.Table), ownerKey)
	return count, err
}

func (s *Store) ReplaceVitals(ctx context.Context, kind vitals.Kind, ownerKey string, entries []vitals.Entry) ([]vitals.Entry, error) {
	sch, ok := vitals.SchemaFor(kind)
	if !ok {
		return nil, fmt.Errorf("unknown vital kind %q", kind)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		DELETE FROM %s WHERE user_email = $1
	`, sch.Table), ownerKey); err != nil {
		return nil, err
	}

	result := make([]vitals.Entry, 0, len(entries))
	now := time.Now().UTC()
	for _, entry := range entries {
		entry.ID = uuid.NewString()
		entry.OwnerKey = ownerKey
		entry.CreatedAt = now
		if err := insertEntry(ctx, tx, sch, entry); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertEntry(ctx context.Context, db execer, sch vitals.Schema, entry vitals.Entry) error {
	columns := append([]string{"id", "user_email", "entry_date"}, sch.FieldNames()...)
	columns = append(columns, "notes", "created_at")

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	args := []interface{}{entry.ID, entry.OwnerKey, entry.EntryDate}
	for _, name := range sch.FieldNames() {
		args = append(args, entry.Value(name))
	}
	args = append(args, toNullString(entry.Notes), entry.CreatedAt)

	_, err := db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (%s) VALUES (%s)
	`, sch.Table, strings.Join(columns, ", "), strings.Join(placeholders, ", ")), args...)
	return err
}

func scanEntry(rows *sql.Rows, sch vitals.Schema) (vitals.Entry, error) {
	var (
		entry     vitals.Entry
		entryDate time.Time
		notes     sql.NullString
		values    = make([]sql.NullString, len(sch.Fields))
	)

	dest := []interface{}{&entry.ID, &entry.OwnerKey, &entryDate}
	for i := range values {
		dest = append(dest, &values[i])
	}
	dest = append(dest, &notes, &entry.CreatedAt)

	if err := rows.Scan(dest...); err != nil {
		return vitals.Entry{}, err
	}

	entry.EntryDate = entryDate.Format(vitals.DateLayout)
	entry.Notes = notes.String
	entry.Values = make(map[string]string, len(sch.Fields))
	for i, f := range sch.Fields {
		entry.Values[f.Name] = values[i].String
	}
	return entry, nil
}

// --- DocumentStore ----------------------------------------------------------

type documentRow struct {
	ID        string         `db:"id"`
	OwnerKey  string         `db:"user_email"`
	EntryDate time.Time      `db:"entry_date"`
	DocType   string         `db:"doc_type"`
	FileName  string         `db:"file_name"`
	FileURL   string         `db:"file_url"`
	FileSize  string         `db:"file_size"`
	Notes     sql.NullString `db:"notes"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r documentRow) toDomain() document.Document {
	return document.Document{
		ID:        r.ID,
		OwnerKey:  r.OwnerKey,
		EntryDate: r.EntryDate.Format(vitals.DateLayout),
		DocType:   r.DocType,
		FileName:  r.FileName,
		FileURL:   r.FileURL,
		FileSize:  r.FileSize,
		Notes:     r.Notes.String,
		CreatedAt: r.CreatedAt,
	}
}

func (s *Store) ListDocuments(ctx context.Context, ownerKey string) ([]document.Document, error) {
	var rows []documentRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, user_email, entry_date, doc_type, file_name, file_url, file_size, notes, created_at
		FROM documents
		WHERE user_email = $1
		ORDER BY entry_date DESC, created_at DESC
	`, ownerKey)
	if err != nil {
		return nil, err
	}

	result := make([]document.Document, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toDomain())
	}
	return result, nil
}

func (s *Store) CreateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	doc.ID = uuid.NewString()
	doc.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, user_email, entry_date, doc_type, file_name, file_url, file_size, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, doc.ID, doc.OwnerKey, doc.EntryDate, doc.DocType, doc.FileName, doc.FileURL, doc.FileSize, toNullString(doc.Notes), doc.CreatedAt)
	if err != nil {
		return document.Document{}, err
	}
	return doc, nil
}

func (s *Store) GetDocument(ctx context.Context, id, ownerKey string) (document.Document, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_email, entry_date, doc_type, file_name, file_url, file_size, notes, created_at
		FROM documents
		WHERE id = $1 AND user_email = $2
	`, id, ownerKey)
	if err != nil {
		return document.Document{}, err
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteDocument(ctx context.Context, id, ownerKey string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM documents WHERE id = $1 AND user_email = $2
	`, id, ownerKey)
	return err
}

func (s *Store) CountDocuments(ctx context.Context, ownerKey string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT count(*) FROM documents WHERE user_email = $1
	`, ownerKey)
	return count, err
}

// --- IdentityStore ----------------------------------------------------------

func (s *Store) EnsureIdentity(ctx context.Context, ownerKey, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
	`, uuid.NewString(), ownerKey, toNullString(name), time.Now().UTC())
	return err
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
