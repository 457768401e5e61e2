package service

import (
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/clinsight-server/internal/domain"
)

// AbnormalityReporter runs the normalizer and severity classifier over a full
// clinical data set, producing per-parameter outputs plus the sorted list of
// abnormal findings.
type AbnormalityReporter struct {
	catalog    *domain.Catalog
	normalizer *Normalizer
	classifier *SeverityClassifier
	logger     *logrus.Logger
}

// NewAbnormalityReporter creates a reporter bound to a catalog.
func NewAbnormalityReporter(catalog *domain.Catalog, logger *logrus.Logger) *AbnormalityReporter {
	return &AbnormalityReporter{
		catalog:    catalog,
		normalizer: NewNormalizer(catalog),
		classifier: NewSeverityClassifier(catalog),
		logger:     logger,
	}
}

// Report walks the catalog in its fixed order. Absent parameters record nil
// in both output maps and are skipped; provided parameters are normalized,
// flagged, and, when abnormal, turned into a full finding with its message.
// Findings are sorted by severity rank descending; ties keep catalog order
// (the ordering feeds disease evidence fallback and must be deterministic).
func (r *AbnormalityReporter) Report(data domain.ClinicalDataSet) (*domain.NormalizationResult, error) {
	result := &domain.NormalizationResult{
		NormalizedData: make(map[string]*float64, r.catalog.Size()),
		BinaryStatuses: make(map[string]*int, r.catalog.Size()),
		AbnormalParams: make([]domain.AbnormalFinding, 0),
	}

	for _, parameterID := range r.catalog.ParameterIDs() {
		value, ok := data.Value(parameterID)
		if !ok {
			result.NormalizedData[parameterID] = nil
			result.BinaryStatuses[parameterID] = nil
			continue
		}

		normalized, err := r.normalizer.Normalize(value, parameterID)
		if err != nil {
			return nil, err
		}
		status, err := r.normalizer.BinaryStatus(value, parameterID)
		if err != nil {
			return nil, err
		}

		result.NormalizedData[parameterID] = &normalized
		result.BinaryStatuses[parameterID] = &status

		if status == 1 {
			sev, err := r.classifier.Classify(value, parameterID)
			if err != nil {
				return nil, err
			}
			message, err := r.classifier.Message(parameterID, value)
			if err != nil {
				return nil, err
			}
			result.AbnormalParams = append(result.AbnormalParams, domain.AbnormalFinding{
				ParameterID: parameterID,
				Value:       value,
				Status:      sev.Status,
				Rank:        sev.Rank,
				Description: sev.Description,
				Message:     message,
			})
		}
	}

	sort.SliceStable(result.AbnormalParams, func(i, j int) bool {
		return result.AbnormalParams[i].Rank > result.AbnormalParams[j].Rank
	})

	r.logger.WithFields(logrus.Fields{
		"provided_params": len(data),
		"abnormal_count":  len(result.AbnormalParams),
	}).Debug("Completed abnormality report")

	return result, nil
}
