// Package mlapi provides a client for the external machine-learning
// prediction service. The service accepts the 24 clinical features under
// its own capitalized key scheme and returns model probabilities, scaled
// values and SHAP attributions that the API layer forwards untouched.
package mlapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/clinsight-server/internal/domain"
)

// featureMapping maps clinical parameter IDs to the key scheme the ML
// service expects.
var featureMapping = map[string]string{
	"bmi":                 "BMI",
	"glucose":             "Glucose",
	"hba1c":               "HbA1c",
	"insulin":             "Insulin",
	"cholesterol":         "Cholesterol",
	"ldl":                 "LDL",
	"hdl":                 "HDL",
	"triglycerides":       "Triglycerides",
	"troponin":            "Troponin",
	"alt":                 "ALT",
	"ast":                 "AST",
	"bilirubin":           "Bilirubin",
	"creatinine":          "Creatinine",
	"bun":                 "BUN",
	"crp":                 "CRP",
	"hemoglobin":          "Hemoglobin",
	"hematocrit":          "Hematocrit",
	"rbc":                 "RBC",
	"mcv":                 "MCV",
	"wbc":                 "WBC",
	"platelets":           "Platelets",
	"systolicBP":          "SystolicBP",
	"diastolicBP":         "DiastolicBP",
	"cholesterolHDLRatio": "Cholesterol_HDL_Ratio",
}

// Client handles interactions with the ML prediction service
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new ML API client
func NewClient(config domain.MLAPIConfig) *Client {
	rps := config.RateLimit
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
	}
}

// errorResponse is the error body the ML service returns.
type errorResponse struct {
	Detail string `json:"detail"`
}

// MapFeatures converts a clinical data set to the ML service key scheme.
// Unknown keys pass through unchanged; non-finite values are coerced to 0.
func MapFeatures(features domain.ClinicalDataSet) map[string]float64 {
	processed := make(map[string]float64, len(features))
	for key, value := range features {
		mlKey, ok := featureMapping[key]
		if !ok {
			mlKey = key
		}
		if math.IsNaN(value) || math.IsInf(value, 0) {
			value = 0
		}
		processed[mlKey] = value
	}
	return processed
}

// Predict sends clinical features to the ML service and returns its raw
// prediction payload.
func (c *Client) Predict(ctx context.Context, features domain.ClinicalDataSet) (map[string]interface{}, error) {
	if len(features) == 0 {
		return nil, domain.NewEngineError(domain.ErrValidation, "features cannot be empty")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"features": MapFeatures(features),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ML service is not responding: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Detail != "" {
			return nil, domain.NewEngineError(domain.ErrExternalAPI, errResp.Detail)
		}
		return nil, domain.NewEngineError(domain.ErrExternalAPI,
			fmt.Sprintf("ML service returned status %d", resp.StatusCode))
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse prediction response: %w", err)
	}

	return result, nil
}

// Health checks the ML service health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ML service is not responding: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.NewEngineError(domain.ErrExternalAPI,
			fmt.Sprintf("ML service health returned status %d", resp.StatusCode))
	}
	return nil
}
