// Package audit provides persistent audit logging for prediction requests.
// Every prediction served through the API is recorded so operators can
// review what was predicted, for whom, and with what inputs.
package audit

import (
	"context"
	"io"
	"time"
)

// Record represents one audited prediction request.
type Record struct {
	ID             int64     `json:"id,omitempty"`
	CorrelationID  string    `json:"correlation_id"`            // Request correlation ID
	ClientIP       string    `json:"client_ip,omitempty"`       // Originating client
	ParameterCount int       `json:"parameter_count"`           // Clinical parameters provided
	AbnormalCount  int       `json:"abnormal_count"`            // Parameters flagged out of range
	TopDisease     string    `json:"top_disease"`               // Highest-ranked prediction
	TopProbability int       `json:"top_probability"`           // Its probability (0-99)
	RiskLevel      string    `json:"risk_level"`                // low, moderate or high
	MLUsed         bool      `json:"ml_used"`                   // External ML service consulted?
	Notes          string    `json:"notes,omitempty"`           // Operator notes
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Store defines the interface for audit storage operations.
type Store interface {
	// Save stores or updates an audit record.
	// If a record with the same correlation ID exists, it will be updated.
	Save(ctx context.Context, record *Record) error

	// Get retrieves the audit record for a correlation ID.
	// Returns nil without error when no record exists.
	Get(ctx context.Context, correlationID string) (*Record, error)

	// List returns audit records with pagination, most recent first.
	List(ctx context.Context, limit, offset int) ([]*Record, error)

	// Count returns the total number of audit records.
	Count(ctx context.Context) (int64, error)

	// Delete removes an audit record by ID.
	Delete(ctx context.Context, id int64) error

	// ExportJSON exports all audit records to a JSON writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON imports audit records from a JSON reader.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// Export represents the JSON export format.
type Export struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Records    []*Record `json:"records"`
}
