package service

import (
	"fmt"
	"strconv"

	"github.com/clinsight-server/internal/domain"
)

// Severity tier cut-points on the relative distance outside the range.
const (
	criticalRatio = 0.5
	severeRatio   = 0.2
)

// SeverityClassifier grades how far a value falls outside its reference range
// and renders the human-readable messages reused by the presentation layers.
type SeverityClassifier struct {
	catalog *domain.Catalog
}

// NewSeverityClassifier creates a classifier bound to a catalog.
func NewSeverityClassifier(catalog *domain.Catalog) *SeverityClassifier {
	return &SeverityClassifier{catalog: catalog}
}

// Classify grades value against the parameter's range. The grading is
// asymmetric: the high side measures (value-max)/max, the low side
// (min-value)/min, each with cut-points at 0.5 (critical) and 0.2 (very).
func (s *SeverityClassifier) Classify(value float64, parameterID string) (domain.Severity, error) {
	def, err := s.catalog.Lookup(parameterID)
	if err != nil {
		return domain.Severity{}, err
	}
	if err := checkFinite(value, parameterID); err != nil {
		return domain.Severity{}, err
	}

	if value > def.Max {
		if def.Max == 0 {
			return domain.Severity{}, domain.NewEngineError(domain.ErrDegenerateRange,
				fmt.Sprintf("cannot grade %s above a zero upper bound", parameterID))
		}
		diffRatio := (value - def.Max) / def.Max
		switch {
		case diffRatio > criticalRatio:
			return severity(domain.StatusCriticalHigh, 3), nil
		case diffRatio > severeRatio:
			return severity(domain.StatusVeryHigh, 2), nil
		default:
			return severity(domain.StatusHigh, 1), nil
		}
	}

	if value < def.Min {
		// A value below a zero lower bound means negative input, which the
		// boundary layer rejects for physiological parameters.
		if def.Min == 0 {
			return domain.Severity{}, domain.NewEngineError(domain.ErrDegenerateRange,
				fmt.Sprintf("cannot grade %s below a zero lower bound", parameterID))
		}
		diffRatio := (def.Min - value) / def.Min
		switch {
		case diffRatio > criticalRatio:
			return severity(domain.StatusCriticalLow, 3), nil
		case diffRatio > severeRatio:
			return severity(domain.StatusVeryLow, 2), nil
		default:
			return severity(domain.StatusLow, 1), nil
		}
	}

	return severity(domain.StatusNormal, 0), nil
}

// Message renders the display sentence for a parameter value, e.g.
// "Glucose is high at 150 mg/dL (expected 70-140 mg/dL)."
func (s *SeverityClassifier) Message(parameterID string, value float64) (string, error) {
	def, err := s.catalog.Lookup(parameterID)
	if err != nil {
		return "", err
	}

	sev, err := s.Classify(value, parameterID)
	if err != nil {
		return "", err
	}

	unit := ""
	if def.Unit != "" {
		unit = " " + def.Unit
	}

	if sev.Status == domain.StatusNormal {
		return fmt.Sprintf("%s is within reference limits (%s%s).",
			def.Label, formatValue(value), unit), nil
	}

	return fmt.Sprintf("%s is %s at %s%s (expected %s-%s%s).",
		def.Label, sev.Description, formatValue(value), unit,
		formatValue(def.Min), formatValue(def.Max), unit), nil
}

func severity(status domain.SeverityStatus, rank int) domain.Severity {
	return domain.Severity{
		Status:      status,
		Rank:        rank,
		Description: status.Description(),
	}
}

// formatValue renders a float without trailing zeros (150, 0.04, 6.5).
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
