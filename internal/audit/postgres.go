package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL audit store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL audit store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Save stores or updates an audit record.
func (s *PostgresStore) Save(ctx context.Context, record *Record) error {
	now := time.Now()

	// Use upsert (INSERT ... ON CONFLICT)
	query := `
		INSERT INTO prediction_audit (
			correlation_id, client_ip, parameter_count, abnormal_count,
			top_disease, top_probability, risk_level, ml_used, notes,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (correlation_id) DO UPDATE SET
			client_ip = EXCLUDED.client_ip,
			parameter_count = EXCLUDED.parameter_count,
			abnormal_count = EXCLUDED.abnormal_count,
			top_disease = EXCLUDED.top_disease,
			top_probability = EXCLUDED.top_probability,
			risk_level = EXCLUDED.risk_level,
			ml_used = EXCLUDED.ml_used,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at
	`

	err := s.db.QueryRowContext(ctx, query,
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
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to save audit record: %w", err)
	}

	record.UpdatedAt = now
	return nil
}

// Get retrieves the audit record for a correlation ID.
func (s *PostgresStore) Get(ctx context.Context, correlationID string) (*Record, error) {
	query := `
		SELECT id, correlation_id, client_ip, parameter_count, abnormal_count,
			top_disease, top_probability, risk_level, ml_used, notes,
			created_at, updated_at
		FROM prediction_audit
		WHERE correlation_id = $1
		LIMIT 1
	`

	rec := &Record{}
	err := s.db.QueryRowContext(ctx, query, correlationID).Scan(
		&rec.ID, &rec.CorrelationID, &rec.ClientIP,
		&rec.ParameterCount, &rec.AbnormalCount,
		&rec.TopDisease, &rec.TopProbability, &rec.RiskLevel,
		&rec.MLUsed, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit record: %w", err)
	}

	return rec, nil
}

// List returns audit records with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	query := `
		SELECT id, correlation_id, client_ip, parameter_count, abnormal_count,
			top_disease, top_probability, risk_level, ml_used, notes,
			created_at, updated_at
		FROM prediction_audit
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		rec := &Record{}
		err := rows.Scan(
			&rec.ID, &rec.CorrelationID, &rec.ClientIP,
			&rec.ParameterCount, &rec.AbnormalCount,
			&rec.TopDisease, &rec.TopProbability, &rec.RiskLevel,
			&rec.MLUsed, &rec.Notes, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, rec)
	}

	return result, rows.Err()
}

// Count returns the total number of audit records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prediction_audit").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit records: %w", err)
	}
	return count, nil
}

// Delete removes an audit record by ID.
func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM prediction_audit WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete audit record: %w", err)
	}
	return nil
}

// pgMaxExportLimit is the maximum number of entries to export at once.
const pgMaxExportLimit = 1000000

// ExportJSON exports all audit records to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, pgMaxExportLimit, 0)
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
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
