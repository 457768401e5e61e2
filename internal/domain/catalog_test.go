package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	assert.Equal(t, 24, catalog.Size())

	// Every range must be well-formed: no inverted or degenerate bounds.
	for _, def := range catalog.Definitions() {
		assert.Less(t, def.Min, def.Max, "parameter %s has a degenerate range", def.ID)
		assert.NotEmpty(t, def.Label, "parameter %s has no label", def.ID)
		assert.NotEmpty(t, def.Unit, "parameter %s has no unit", def.ID)
		assert.NotEmpty(t, def.Category, "parameter %s has no category", def.ID)
	}
}

func TestDefaultCatalogRanges(t *testing.T) {
	catalog := DefaultCatalog()

	tests := []struct {
		id       string
		min, max float64
		unit     string
	}{
		{"glucose", 70, 140, "mg/dL"},
		{"ast", 8, 48, "U/L"},
		{"troponin", 0, 0.04, "ng/mL"},
		{"creatinine", 0.7, 1.3, "mg/dL"},
		{"hba1c", 0, 5.7, "%"},
		{"systolicBP", 90, 120, "mmHg"},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			def, err := catalog.Lookup(tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.min, def.Min)
			assert.Equal(t, tt.max, def.Max)
			assert.Equal(t, tt.unit, def.Unit)
		})
	}
}

func TestCatalogLookupUnknown(t *testing.T) {
	catalog := DefaultCatalog()

	_, err := catalog.Lookup("ferritin")
	require.Error(t, err)
	assert.True(t, IsEngineError(err, ErrUnknownParameter))
}

func TestCatalogIterationOrder(t *testing.T) {
	catalog := DefaultCatalog()

	ids := catalog.ParameterIDs()
	require.Len(t, ids, 24)
	assert.Equal(t, "bmi", ids[0])
	assert.Equal(t, "cholesterolHDLRatio", ids[23])

	// Order must be stable across calls.
	assert.Equal(t, ids, catalog.ParameterIDs())
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]ParameterDefinition{
		{ID: "glucose", Min: 70, Max: 140},
		{ID: "glucose", Min: 70, Max: 99},
	})
	assert.Error(t, err)
}

func TestNewCatalogRejectsInvertedRange(t *testing.T) {
	_, err := NewCatalog([]ParameterDefinition{
		{ID: "glucose", Min: 140, Max: 70},
	})
	assert.Error(t, err)
}
