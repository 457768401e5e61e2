// Package service implements the clinical prediction engine: min-max
// normalization against reference ranges, severity classification, abnormality
// reporting and the rule-based disease scoring that feeds ranked predictions.
package service

import (
	"fmt"
	"math"

	"github.com/clinsight-server/internal/domain"
)

// Normalizer rescales raw clinical values into [0,1] relative to their
// reference range and derives the binary normal/abnormal flag.
type Normalizer struct {
	catalog *domain.Catalog
}

// NewNormalizer creates a normalizer bound to a catalog.
func NewNormalizer(catalog *domain.Catalog) *Normalizer {
	return &Normalizer{catalog: catalog}
}

// Normalize maps value into [0,1] using min-max scaling over the parameter's
// reference range, clamping values outside the range to the nearest bound.
func (n *Normalizer) Normalize(value float64, parameterID string) (float64, error) {
	def, err := n.catalog.Lookup(parameterID)
	if err != nil {
		return 0, err
	}
	if err := checkFinite(value, parameterID); err != nil {
		return 0, err
	}
	if def.Max == def.Min {
		return 0, domain.NewEngineError(domain.ErrDegenerateRange,
			fmt.Sprintf("degenerate reference range for %s: min == max == %v", parameterID, def.Min))
	}

	normalized := (value - def.Min) / (def.Max - def.Min)
	return clamp01(normalized), nil
}

// BinaryStatus returns 0 when min <= value <= max, 1 otherwise. Both bounds
// are inclusive: a value sitting exactly on a bound is normal.
func (n *Normalizer) BinaryStatus(value float64, parameterID string) (int, error) {
	def, err := n.catalog.Lookup(parameterID)
	if err != nil {
		return 0, err
	}
	if err := checkFinite(value, parameterID); err != nil {
		return 0, err
	}

	if value >= def.Min && value <= def.Max {
		return 0, nil
	}
	return 1, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// checkFinite rejects NaN and infinite inputs; the engine never coerces them.
func checkFinite(value float64, parameterID string) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return domain.NewEngineError(domain.ErrInvalidValue,
			fmt.Sprintf("non-finite value for %s", parameterID))
	}
	return nil
}
