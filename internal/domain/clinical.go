package domain

// ClinicalDataSet maps parameter IDs to raw lab values. A parameter that was
// not provided is simply not present in the map; the boundary layer collapses
// nulls, empty strings and non-numeric input into key absence before the data
// reaches the engine. Absent is never the same as zero for normalization or
// classification.
type ClinicalDataSet map[string]float64

// Value returns the raw value for a parameter and whether it was provided.
func (d ClinicalDataSet) Value(parameterID string) (float64, bool) {
	v, ok := d[parameterID]
	return v, ok
}

// ValueOrZero returns the raw value for a parameter, treating absent as 0.
// This leniency is reserved for disease rule evaluation, where every
// threshold is positive and a missing parameter must simply not trigger the
// rule. All other components must use Value and skip absent parameters.
func (d ClinicalDataSet) ValueOrZero(parameterID string) float64 {
	return d[parameterID]
}

// Clone returns an independent copy of the data set.
func (d ClinicalDataSet) Clone() ClinicalDataSet {
	out := make(ClinicalDataSet, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
