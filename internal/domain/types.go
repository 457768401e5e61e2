package domain

import "time"

// SeverityStatus labels how far a value sits relative to its reference range.
type SeverityStatus string

const (
	StatusCriticalHigh SeverityStatus = "critical-high"
	StatusVeryHigh     SeverityStatus = "very-high"
	StatusHigh         SeverityStatus = "high"
	StatusNormal       SeverityStatus = "normal"
	StatusLow          SeverityStatus = "low"
	StatusVeryLow      SeverityStatus = "very-low"
	StatusCriticalLow  SeverityStatus = "critical-low"
)

// Description returns the human phrase for a status, e.g. "critically high".
func (s SeverityStatus) Description() string {
	switch s {
	case StatusCriticalHigh:
		return "critically high"
	case StatusVeryHigh:
		return "very high"
	case StatusHigh:
		return "high"
	case StatusCriticalLow:
		return "critically low"
	case StatusVeryLow:
		return "very low"
	case StatusLow:
		return "low"
	default:
		return "within range"
	}
}

// Severity is the classification of a single value against its range.
// Rank runs 0 (normal) to 3 (critical); it is derived per request and never
// stored.
type Severity struct {
	Status      SeverityStatus `json:"status"`
	Rank        int            `json:"severity"`
	Description string         `json:"description"`
}

// AbnormalFinding is a parameter whose value fell outside its reference
// range, with the classified severity and a ready-to-display message.
// Findings exist only within one prediction computation.
type AbnormalFinding struct {
	ParameterID string         `json:"parameter"`
	Value       float64        `json:"value"`
	Status      SeverityStatus `json:"status"`
	Rank        int            `json:"severity"`
	Description string         `json:"description"`
	Message     string         `json:"message"`
}

// RiskLevel buckets a disease prediction by urgency.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// DiseasePrediction is one ranked entry in the engine output. Probability and
// Confidence mirror each other in the rule-based design; both are capped at
// 99 for disease rules and may reach 100 only for the synthetic Healthy
// result.
type DiseasePrediction struct {
	Name                string    `json:"name"`
	Probability         int       `json:"probability"`
	Confidence          int       `json:"confidence"`
	Severity            RiskLevel `json:"severity"`
	ContributingFactors []string  `json:"contributingFactors"`
	ParameterEvidence   []string  `json:"parameterEvidence"`
}

// NormalizationResult carries the per-parameter outputs of a full pass over
// the catalog. Parameters that were not provided map to nil so that the JSON
// response distinguishes "absent" from any numeric value.
type NormalizationResult struct {
	NormalizedData  map[string]*float64 `json:"normalizedData"`
	BinaryStatuses  map[string]*int     `json:"binaryStatuses"`
	AbnormalParams  []AbnormalFinding   `json:"abnormalParameters"`
}

// PredictionSummary aggregates headline counts for a prediction response.
type PredictionSummary struct {
	TotalPredictions       int `json:"totalPredictions"`
	HighRiskDiseases       int `json:"highRiskDiseases"`
	ModerateRiskDiseases   int `json:"moderateRiskDiseases"`
	AbnormalParameterCount int `json:"abnormalParameterCount"`
}

// PredictionReport is the full engine output handed to the API layer.
type PredictionReport struct {
	Predictions    []DiseasePrediction `json:"predictions"`
	NormalizedData map[string]*float64 `json:"normalizedData"`
	BinaryStatuses map[string]*int     `json:"binaryStatuses"`
	AbnormalParams []AbnormalFinding   `json:"abnormalParameters"`
	Summary        PredictionSummary   `json:"summary"`
}

// PatientRecord is a stored patient analysis: demographics, the raw clinical
// data that was entered, and the predictions generated for it.
type PatientRecord struct {
	ID           string              `json:"id"`
	FullName     string              `json:"fullname"`
	Age          int                 `json:"age"`
	Gender       string              `json:"gender"`
	BloodGroup   string              `json:"bloodGroup"`
	Mobile       string              `json:"mobile"`
	ClinicalData ClinicalDataSet     `json:"clinicalData"`
	Predictions  []DiseasePrediction `json:"predictions"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// Allowed demographic enumerations, as the source system validates them.
var (
	ValidGenders     = []string{"Male", "Female", "Other"}
	ValidBloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}
)
