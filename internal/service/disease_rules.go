package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/clinsight-server/internal/domain"
)

// maxProbability caps every disease score; 100 is reserved for Healthy.
const maxProbability = 99

// DiseaseRule is one per-disease scoring rule. The evaluator accumulates an
// additive score from threshold checks on raw values and returns the
// contributing-factor texts for each check that fired. RelevantParams is the
// fixed list of parameter IDs used for evidence text only, never for scoring.
type DiseaseRule struct {
	Name           string
	RelevantParams []string
	Evaluate       func(data domain.ClinicalDataSet) (score int, factors []string)
	Bucket         func(score int) domain.RiskLevel
}

// DiseaseRuleEngine evaluates the fixed disease rule set against raw clinical
// values. It is stateless; rules run in a fixed order so that equal-probability
// predictions rank deterministically.
type DiseaseRuleEngine struct {
	catalog    *domain.Catalog
	classifier *SeverityClassifier
	logger     *logrus.Logger
	rules      []*DiseaseRule
}

// NewDiseaseRuleEngine creates a rule engine bound to a catalog.
func NewDiseaseRuleEngine(catalog *domain.Catalog, logger *logrus.Logger) *DiseaseRuleEngine {
	engine := &DiseaseRuleEngine{
		catalog:    catalog,
		classifier: NewSeverityClassifier(catalog),
		logger:     logger,
	}
	engine.initializeRules()
	return engine
}

// Evaluate runs every disease rule against the raw data and returns the
// predictions whose score is positive, in rule order. Missing parameters read
// as 0, so no rule can fire on absent input; this leniency is intentional and
// scoped to rule evaluation.
func (e *DiseaseRuleEngine) Evaluate(data domain.ClinicalDataSet, findings []domain.AbnormalFinding) []domain.DiseasePrediction {
	predictions := make([]domain.DiseasePrediction, 0, len(e.rules))

	for _, rule := range e.rules {
		score, factors := rule.Evaluate(data)
		if score <= 0 {
			continue
		}

		capped := score
		if capped > maxProbability {
			capped = maxProbability
		}

		predictions = append(predictions, domain.DiseasePrediction{
			Name:                rule.Name,
			Probability:         capped,
			Confidence:          capped,
			Severity:            rule.Bucket(score),
			ContributingFactors: factors,
			ParameterEvidence:   e.describeEvidence(rule, data, findings),
		})
	}

	e.logger.WithFields(logrus.Fields{
		"rules_evaluated": len(e.rules),
		"rules_fired":     len(predictions),
	}).Debug("Completed disease rule evaluation")

	return predictions
}

// describeEvidence builds the evidence messages for a prediction: every
// relevant parameter whose provided value is out of range, or, when none is,
// the top 3 findings from the global abnormality list.
func (e *DiseaseRuleEngine) describeEvidence(rule *DiseaseRule, data domain.ClinicalDataSet, findings []domain.AbnormalFinding) []string {
	evidence := make([]string, 0, len(rule.RelevantParams))

	for _, parameterID := range rule.RelevantParams {
		value, ok := data.Value(parameterID)
		if !ok {
			continue
		}
		def, err := e.catalog.Lookup(parameterID)
		if err != nil {
			continue
		}
		if value < def.Min || value > def.Max {
			message, err := e.classifier.Message(parameterID, value)
			if err != nil {
				e.logger.WithError(err).WithField("parameter", parameterID).
					Warn("Failed to render evidence message")
				continue
			}
			evidence = append(evidence, message)
		}
	}

	if len(evidence) == 0 && len(findings) > 0 {
		top := findings
		if len(top) > 3 {
			top = top[:3]
		}
		for _, finding := range top {
			evidence = append(evidence, finding.Message)
		}
	}

	return evidence
}

// initializeRules sets up the disease rules in their canonical evaluation
// order: Diabetes, Heart Disease, Liver Disease, Kidney Disease.
func (e *DiseaseRuleEngine) initializeRules() {
	e.rules = []*DiseaseRule{
		{
			Name:           "Diabetes",
			RelevantParams: []string{"glucose", "hba1c", "insulin", "bmi", "triglycerides", "hdl"},
			Evaluate: func(data domain.ClinicalDataSet) (int, []string) {
				score := 0
				factors := []string{}

				if glucose := data.ValueOrZero("glucose"); glucose > 200 {
					score += 50
					factors = append(factors, fmt.Sprintf("Critical Glucose (%s mg/dL)", formatValue(glucose)))
				} else if glucose > 140 {
					score += 30
					factors = append(factors, "Elevated Glucose")
				}

				if hba1c := data.ValueOrZero("hba1c"); hba1c > 6.5 {
					score += 40
					factors = append(factors, fmt.Sprintf("HbA1c indicates diabetes (%s%%)", formatValue(hba1c)))
				}

				return score, factors
			},
			Bucket: func(score int) domain.RiskLevel {
				if score > 70 {
					return domain.RiskHigh
				}
				return domain.RiskModerate
			},
		},
		{
			Name:           "Heart Disease",
			RelevantParams: []string{"troponin", "systolicBP", "diastolicBP", "ldl", "triglycerides", "hdl", "crp"},
			Evaluate: func(data domain.ClinicalDataSet) (int, []string) {
				score := 0
				factors := []string{}

				if data.ValueOrZero("troponin") > 0.04 {
					score += 95
					factors = append(factors, "Critical Troponin - Myocardial Infarction Risk")
				}
				if data.ValueOrZero("ldl") > 160 {
					score += 20
					factors = append(factors, "Very High LDL")
				}
				if data.ValueOrZero("triglycerides") > 500 {
					score += 15
					factors = append(factors, "Severe Hypertriglyceridemia")
				}
				if data.ValueOrZero("systolicBP") > 160 {
					score += 20
					factors = append(factors, "Stage 2 Hypertension")
				}

				return score, factors
			},
			Bucket: func(score int) domain.RiskLevel {
				switch {
				case score > 80:
					return domain.RiskHigh
				case score > 50:
					return domain.RiskModerate
				default:
					return domain.RiskLow
				}
			},
		},
		{
			Name:           "Liver Disease",
			RelevantParams: []string{"alt", "ast", "bilirubin", "crp"},
			Evaluate: func(data domain.ClinicalDataSet) (int, []string) {
				score := 0
				factors := []string{}

				if data.ValueOrZero("alt") > 200 || data.ValueOrZero("ast") > 200 {
					score += 80
					factors = append(factors, "Extremely elevated liver enzymes")
				}
				if data.ValueOrZero("bilirubin") > 2.0 {
					score += 30
					factors = append(factors, "Elevated Bilirubin")
				}

				return score, factors
			},
			Bucket: func(score int) domain.RiskLevel {
				if score > 70 {
					return domain.RiskHigh
				}
				return domain.RiskModerate
			},
		},
		{
			Name:           "Kidney Disease",
			RelevantParams: []string{"creatinine", "bun", "systolicBP", "diastolicBP", "bmi", "crp"},
			Evaluate: func(data domain.ClinicalDataSet) (int, []string) {
				score := 0
				factors := []string{}

				if creatinine := data.ValueOrZero("creatinine"); creatinine > 4.0 {
					score += 90
					factors = append(factors, fmt.Sprintf("Critical Creatinine (%s) - Renal Failure", formatValue(creatinine)))
				} else if creatinine > 1.4 {
					score += 40
					factors = append(factors, "Elevated Creatinine")
				}

				if bun := data.ValueOrZero("bun"); bun > 30 {
					score += 30
					factors = append(factors, fmt.Sprintf("Elevated BUN (%s mg/dL)", formatValue(bun)))
				}

				return score, factors
			},
			Bucket: func(score int) domain.RiskLevel {
				if score > 70 {
					return domain.RiskHigh
				}
				return domain.RiskModerate
			},
		},
	}

	e.logger.WithField("rule_count", len(e.rules)).Info("Initialized disease rules")
}
