// Package repository implements PostgreSQL persistence for patient analyses.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/clinsight-server/internal/domain"
)

// PatientRepository handles patient record persistence
type PatientRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPatientRepository creates a new patient repository
func NewPatientRepository(db *pgxpool.Pool, logger *logrus.Logger) *PatientRepository {
	return &PatientRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a new patient record. A missing ID is generated; timestamps
// are set server-side.
func (r *PatientRepository) Create(ctx context.Context, record *domain.PatientRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	record.CreatedAt = now
	record.UpdatedAt = now

	clinicalData, predictions, err := marshalPayload(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO patients (
			id, fullname, age, gender, blood_group, mobile,
			clinical_data, predictions, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		)`

	_, err = r.db.Exec(ctx, query,
		record.ID,
		record.FullName,
		record.Age,
		record.Gender,
		record.BloodGroup,
		record.Mobile,
		clinicalData,
		predictions,
		record.CreatedAt,
		record.UpdatedAt,
	)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": record.ID,
			"error":      err,
		}).Error("Failed to create patient record")
		return fmt.Errorf("creating patient record: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id": record.ID,
		"fullname":   record.FullName,
	}).Info("Patient record created")

	return nil
}

// GetByID retrieves a patient record by its ID
func (r *PatientRepository) GetByID(ctx context.Context, id string) (*domain.PatientRecord, error) {
	query := `
		SELECT id, fullname, age, gender, blood_group, mobile,
			   clinical_data, predictions, created_at, updated_at
		FROM patients
		WHERE id = $1`

	record, err := scanPatient(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("patient record %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"patient_id": id,
			"error":      err,
		}).Error("Failed to get patient record")
		return nil, fmt.Errorf("getting patient record: %w", err)
	}

	return record, nil
}

// List returns all patient records, most recent first
func (r *PatientRepository) List(ctx context.Context) ([]*domain.PatientRecord, error) {
	query := `
		SELECT id, fullname, age, gender, blood_group, mobile,
			   clinical_data, predictions, created_at, updated_at
		FROM patients
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing patient records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.PatientRecord, 0)
	for rows.Next() {
		record, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning patient record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating patient records: %w", err)
	}

	return records, nil
}

// Update rewrites the mutable fields of an existing record
func (r *PatientRepository) Update(ctx context.Context, record *domain.PatientRecord) error {
	record.UpdatedAt = time.Now().UTC()

	clinicalData, predictions, err := marshalPayload(record)
	if err != nil {
		return err
	}

	query := `
		UPDATE patients
		SET fullname = $2, age = $3, gender = $4, blood_group = $5,
			mobile = $6, clinical_data = $7, predictions = $8, updated_at = $9
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		record.ID,
		record.FullName,
		record.Age,
		record.Gender,
		record.BloodGroup,
		record.Mobile,
		clinicalData,
		predictions,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating patient record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient record %s: %w", record.ID, domain.ErrNotFound)
	}

	r.log.WithField("patient_id", record.ID).Info("Patient record updated")
	return nil
}

// Delete removes a patient record by ID
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting patient record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("patient record %s: %w", id, domain.ErrNotFound)
	}

	r.log.WithField("patient_id", id).Info("Patient record deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPatient(row rowScanner) (*domain.PatientRecord, error) {
	var record domain.PatientRecord
	var clinicalData, predictions []byte

	err := row.Scan(
		&record.ID,
		&record.FullName,
		&record.Age,
		&record.Gender,
		&record.BloodGroup,
		&record.Mobile,
		&clinicalData,
		&predictions,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(clinicalData, &record.ClinicalData); err != nil {
		return nil, fmt.Errorf("decoding clinical data: %w", err)
	}
	if err := json.Unmarshal(predictions, &record.Predictions); err != nil {
		return nil, fmt.Errorf("decoding predictions: %w", err)
	}

	return &record, nil
}

func marshalPayload(record *domain.PatientRecord) ([]byte, []byte, error) {
	if record.ClinicalData == nil {
		record.ClinicalData = domain.ClinicalDataSet{}
	}
	if record.Predictions == nil {
		record.Predictions = []domain.DiseasePrediction{}
	}

	clinicalData, err := json.Marshal(record.ClinicalData)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding clinical data: %w", err)
	}
	predictions, err := json.Marshal(record.Predictions)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding predictions: %w", err)
	}
	return clinicalData, predictions, nil
}
