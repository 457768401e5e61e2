package service

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinsight-server/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func TestAbnormalityReporter_Report(t *testing.T) {
	catalog := domain.DefaultCatalog()
	reporter := NewAbnormalityReporter(catalog, testLogger())

	data := domain.ClinicalDataSet{
		"glucose":    150, // high
		"hemoglobin": 15,  // normal
		"troponin":   1,   // critical-high
	}

	result, err := reporter.Report(data)
	require.NoError(t, err)

	// Every catalog parameter appears in both maps; absent ones as nil.
	assert.Len(t, result.NormalizedData, catalog.Size())
	assert.Len(t, result.BinaryStatuses, catalog.Size())
	assert.Nil(t, result.NormalizedData["bmi"])
	assert.Nil(t, result.BinaryStatuses["bmi"])

	require.NotNil(t, result.NormalizedData["hemoglobin"])
	require.NotNil(t, result.BinaryStatuses["hemoglobin"])
	assert.Equal(t, 0, *result.BinaryStatuses["hemoglobin"])

	require.NotNil(t, result.BinaryStatuses["glucose"])
	assert.Equal(t, 1, *result.BinaryStatuses["glucose"])
	require.NotNil(t, result.NormalizedData["glucose"])
	assert.Equal(t, 1.0, *result.NormalizedData["glucose"]) // clamped

	// Findings sorted by severity rank descending: troponin (3) first.
	require.Len(t, result.AbnormalParams, 2)
	assert.Equal(t, "troponin", result.AbnormalParams[0].ParameterID)
	assert.Equal(t, 3, result.AbnormalParams[0].Rank)
	assert.Equal(t, "glucose", result.AbnormalParams[1].ParameterID)
	assert.Equal(t, 1, result.AbnormalParams[1].Rank)
	assert.Contains(t, result.AbnormalParams[1].Message, "Glucose is high at 150 mg/dL")
}

func TestAbnormalityReporter_AbsentIsNotZero(t *testing.T) {
	reporter := NewAbnormalityReporter(domain.DefaultCatalog(), testLogger())

	// An empty data set produces no findings: absent parameters are skipped,
	// never classified as zero (zero would be abnormal for most parameters).
	result, err := reporter.Report(domain.ClinicalDataSet{})
	require.NoError(t, err)
	assert.Empty(t, result.AbnormalParams)
	for id, normalized := range result.NormalizedData {
		assert.Nil(t, normalized, "parameter %s should be nil", id)
	}
}

func TestAbnormalityReporter_StableTieOrder(t *testing.T) {
	reporter := NewAbnormalityReporter(domain.DefaultCatalog(), testLogger())

	// Two rank-1 findings keep catalog order: glucose precedes ast.
	data := domain.ClinicalDataSet{
		"ast":     50,  // high, rank 1
		"glucose": 150, // high, rank 1
	}

	result, err := reporter.Report(data)
	require.NoError(t, err)
	require.Len(t, result.AbnormalParams, 2)
	assert.Equal(t, "glucose", result.AbnormalParams[0].ParameterID)
	assert.Equal(t, "ast", result.AbnormalParams[1].ParameterID)
}

func TestAbnormalityReporter_IgnoresUnknownKeys(t *testing.T) {
	reporter := NewAbnormalityReporter(domain.DefaultCatalog(), testLogger())

	// Keys outside the catalog are not iterated; the report only covers
	// catalog parameters. (The API layer rejects unknown keys up front.)
	data := domain.ClinicalDataSet{
		"glucose":  100,
		"ferritin": 500,
	}

	result, err := reporter.Report(data)
	require.NoError(t, err)
	assert.NotContains(t, result.NormalizedData, "ferritin")
	assert.Empty(t, result.AbnormalParams)
}
