package domain

import "fmt"

// ParameterDefinition describes a single clinical parameter: its display
// label, the inclusive reference range considered normal, the unit the value
// is reported in, and the panel category it belongs to.
type ParameterDefinition struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Unit     string  `json:"unit"`
	Category string  `json:"category"`
}

// Catalog is an immutable set of parameter definitions with a fixed iteration
// order. It is built once at startup and shared read-only across requests.
type Catalog struct {
	order []string
	defs  map[string]ParameterDefinition
}

// NewCatalog builds a catalog from an ordered list of definitions.
// Definitions with duplicate IDs or inverted ranges are rejected.
func NewCatalog(defs []ParameterDefinition) (*Catalog, error) {
	c := &Catalog{
		order: make([]string, 0, len(defs)),
		defs:  make(map[string]ParameterDefinition, len(defs)),
	}

	for _, def := range defs {
		if def.ID == "" {
			return nil, fmt.Errorf("parameter definition without id")
		}
		if _, exists := c.defs[def.ID]; exists {
			return nil, fmt.Errorf("duplicate parameter definition: %s", def.ID)
		}
		if def.Min > def.Max {
			return nil, fmt.Errorf("inverted reference range for %s: %v > %v", def.ID, def.Min, def.Max)
		}
		c.order = append(c.order, def.ID)
		c.defs[def.ID] = def
	}

	return c, nil
}

// Lookup returns the definition for a parameter ID.
// Unknown IDs are an error, never silently defaulted.
func (c *Catalog) Lookup(parameterID string) (ParameterDefinition, error) {
	def, ok := c.defs[parameterID]
	if !ok {
		return ParameterDefinition{}, NewEngineError(ErrUnknownParameter,
			fmt.Sprintf("unknown clinical parameter: %s", parameterID))
	}
	return def, nil
}

// Has reports whether the catalog contains the parameter ID.
func (c *Catalog) Has(parameterID string) bool {
	_, ok := c.defs[parameterID]
	return ok
}

// ParameterIDs returns the parameter IDs in catalog order. The returned slice
// is a copy; callers may not mutate catalog state through it.
func (c *Catalog) ParameterIDs() []string {
	ids := make([]string, len(c.order))
	copy(ids, c.order)
	return ids
}

// Size returns the number of parameters in the catalog.
func (c *Catalog) Size() int {
	return len(c.order)
}

// Definitions returns all definitions in catalog order.
func (c *Catalog) Definitions() []ParameterDefinition {
	defs := make([]ParameterDefinition, 0, len(c.order))
	for _, id := range c.order {
		defs = append(defs, c.defs[id])
	}
	return defs
}

// DefaultCatalog returns the 24-parameter reference table used by the
// prediction engine. The ranges follow the server-side table of the source
// system; where the client-side copy disagreed (glucose, HbA1c, AST,
// creatinine, CRP and several CBC bounds) the server values are authoritative.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog([]ParameterDefinition{
		{ID: "bmi", Label: "BMI", Min: 18.5, Max: 24.9, Unit: "kg/m²", Category: "Vitals"},
		{ID: "glucose", Label: "Glucose", Min: 70, Max: 140, Unit: "mg/dL", Category: "Metabolic"},
		{ID: "hba1c", Label: "HbA1c", Min: 0, Max: 5.7, Unit: "%", Category: "Metabolic"},
		{ID: "insulin", Label: "Insulin", Min: 2.6, Max: 24.9, Unit: "µIU/mL", Category: "Metabolic"},
		{ID: "cholesterol", Label: "Cholesterol", Min: 125, Max: 200, Unit: "mg/dL", Category: "Lipid Profile"},
		{ID: "ldl", Label: "LDL", Min: 0, Max: 100, Unit: "mg/dL", Category: "Lipid Profile"},
		{ID: "hdl", Label: "HDL", Min: 40, Max: 60, Unit: "mg/dL", Category: "Lipid Profile"},
		{ID: "triglycerides", Label: "Triglycerides", Min: 0, Max: 150, Unit: "mg/dL", Category: "Lipid Profile"},
		{ID: "troponin", Label: "Troponin", Min: 0, Max: 0.04, Unit: "ng/mL", Category: "Cardiac Marker"},
		{ID: "alt", Label: "ALT", Min: 7, Max: 56, Unit: "U/L", Category: "Liver"},
		{ID: "ast", Label: "AST", Min: 8, Max: 48, Unit: "U/L", Category: "Liver"},
		{ID: "bilirubin", Label: "Bilirubin", Min: 0.1, Max: 1.2, Unit: "mg/dL", Category: "Liver"},
		{ID: "creatinine", Label: "Creatinine", Min: 0.7, Max: 1.3, Unit: "mg/dL", Category: "Kidney"},
		{ID: "bun", Label: "BUN", Min: 7, Max: 20, Unit: "mg/dL", Category: "Kidney"},
		{ID: "crp", Label: "CRP", Min: 0, Max: 10, Unit: "mg/L", Category: "Inflammation"},
		{ID: "hemoglobin", Label: "Hemoglobin", Min: 13.5, Max: 17.5, Unit: "g/dL", Category: "Blood Count"},
		{ID: "hematocrit", Label: "Hematocrit", Min: 41, Max: 50, Unit: "%", Category: "Blood Count"},
		{ID: "rbc", Label: "RBC", Min: 4.5, Max: 5.9, Unit: "10^12/L", Category: "Blood Count"},
		{ID: "mcv", Label: "MCV", Min: 80, Max: 100, Unit: "fL", Category: "Blood Indices"},
		{ID: "wbc", Label: "WBC", Min: 4.5, Max: 11.0, Unit: "10^9/L", Category: "Blood Count"},
		{ID: "platelets", Label: "Platelets", Min: 150, Max: 450, Unit: "10^9/L", Category: "Blood Count"},
		{ID: "systolicBP", Label: "Systolic BP", Min: 90, Max: 120, Unit: "mmHg", Category: "Cardio"},
		{ID: "diastolicBP", Label: "Diastolic BP", Min: 60, Max: 80, Unit: "mmHg", Category: "Cardio"},
		{ID: "cholesterolHDLRatio", Label: "Chol/HDL Ratio", Min: 0, Max: 5, Unit: "ratio", Category: "Lipid Profile"},
	})
	if err != nil {
		// The built-in table is fixed; a construction failure is a programming error.
		panic(fmt.Sprintf("default catalog is invalid: %v", err))
	}
	return catalog
}
