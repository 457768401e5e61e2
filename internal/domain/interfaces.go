package domain

import (
	"context"
)

// PredictionEngine turns a sparse clinical data set into a ranked prediction
// report. Implementations must be pure functions of the input and the static
// catalog: no I/O, no shared mutable state, safe for concurrent use.
type PredictionEngine interface {
	Predict(data ClinicalDataSet) (*PredictionReport, error)
}

// MLPredictor queries the external machine-learning prediction service. The
// returned payload is opaque to the engine; the API layer merges it alongside
// the rule-based output without interpreting it.
type MLPredictor interface {
	Predict(ctx context.Context, features ClinicalDataSet) (map[string]interface{}, error)
	Health(ctx context.Context) error
}

// PatientRepository defines persistence for patient analyses.
type PatientRepository interface {
	Create(ctx context.Context, record *PatientRecord) error
	GetByID(ctx context.Context, id string) (*PatientRecord, error)
	List(ctx context.Context) ([]*PatientRecord, error)
	Update(ctx context.Context, record *PatientRecord) error
	Delete(ctx context.Context, id string) error
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetDatabaseConfig() *DatabaseConfig
	GetMLAPIConfig() *MLAPIConfig
	Validate() error
	Reload() error
	GetDatabaseConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}
