package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite audit store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanRecord scans a row into a Record struct.
func scanRecord(s scanner) (*Record, error) {
	rec := &Record{}
	err := s.Scan(
		&rec.ID, &rec.CorrelationID, &rec.ClientIP,
		&rec.ParameterCount, &rec.AbnormalCount,
		&rec.TopDisease, &rec.TopProbability, &rec.RiskLevel,
		&rec.MLUsed, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS prediction_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		correlation_id TEXT NOT NULL UNIQUE,
		client_ip TEXT DEFAULT '',
		parameter_count INTEGER NOT NULL DEFAULT 0,
		abnormal_count INTEGER NOT NULL DEFAULT 0,
		top_disease TEXT NOT NULL,
		top_probability INTEGER NOT NULL DEFAULT 0,
		risk_level TEXT NOT NULL,
		ml_used INTEGER NOT NULL DEFAULT 0,
		notes TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_audit_top_disease ON prediction_audit(top_disease);
	CREATE INDEX IF NOT EXISTS idx_audit_risk_level ON prediction_audit(risk_level);
	CREATE INDEX IF NOT EXISTS idx_audit_created_at ON prediction_audit(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores or updates an audit record.
func (s *SQLiteStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()

	// Check if exists
	var existingID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM prediction_audit WHERE correlation_id = ?",
		record.CorrelationID,
	).Scan(&existingID)

	if err == nil {
		// Update existing
		record.ID = existingID
		record.UpdatedAt = now

		_, err = s.db.ExecContext(ctx, `
			UPDATE prediction_audit SET
				client_ip = ?,
				parameter_count = ?,
				abnormal_count = ?,
				top_disease = ?,
				top_probability = ?,
				risk_level = ?,
				ml_used = ?,
				notes = ?,
				updated_at = ?
			WHERE id = ?
		`,
			record.ClientIP,
			record.ParameterCount,
			record.AbnormalCount,
			record.TopDisease,
			record.TopProbability,
			record.RiskLevel,
			record.MLUsed,
			record.Notes,
			now,
			existingID,
		)
		return err
	}

	if err != sql.ErrNoRows {
		return fmt.Errorf("failed to check existing: %w", err)
	}

	// Insert new
	record.CreatedAt = now
	record.UpdatedAt = now

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO prediction_audit (
			correlation_id, client_ip, parameter_count, abnormal_count,
			top_disease, top_probability, risk_level, ml_used, notes,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.CorrelationID,
		record.ClientIP,
		record.ParameterCount,
		record.AbnormalCount,
		record.TopDisease,
		record.TopProbability,
		record.RiskLevel,
		record.MLUsed,
		record.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get insert ID: %w", err)
	}
	record.ID = id

	return nil
}

// Get retrieves the audit record for a correlation ID.
func (s *SQLiteStore) Get(ctx context.Context, correlationID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, correlation_id, client_ip, parameter_count, abnormal_count,
			top_disease, top_probability, risk_level, ml_used, notes,
			created_at, updated_at
		FROM prediction_audit
		WHERE correlation_id = ?
		LIMIT 1
	`, correlationID)

	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return rec, nil
}

// List returns audit records with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, correlation_id, client_ip, parameter_count, abnormal_count,
			top_disease, top_probability, risk_level, ml_used, notes,
			created_at, updated_at
		FROM prediction_audit
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

// Count returns the total number of audit records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prediction_audit").Scan(&count)
	return count, err
}

// Delete removes an audit record by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM prediction_audit WHERE id = ?", id)
	return err
}

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// ExportJSON exports all audit records to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON imports audit records from a JSON reader.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export Export
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, rec := range export.Records {
		existing, err := s.Get(ctx, rec.CorrelationID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}

		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, rec); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
