package api

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/clinsight-server/internal/audit"
	"github.com/clinsight-server/internal/domain"
)

// apiResponse is the envelope every endpoint returns, matching the shape
// dashboard clients already consume.
type apiResponse struct {
	StatusCode int         `json:"statusCode"`
	Data       interface{} `json:"data"`
	Message    string      `json:"message"`
	Success    bool        `json:"success"`
}

func respond(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, apiResponse{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < 400,
	})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"statusCode":     status,
		"message":        message,
		"success":        false,
		"correlation_id": c.GetString("correlation_id"),
	})
}

var mobilePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// predictRequest is the prediction endpoint payload. Values arrive as
// pointers so JSON null collapses to "parameter absent".
type predictRequest struct {
	ClinicalData map[string]*float64 `json:"clinicalData"`
	UseMLModel   *bool               `json:"useMLModel"`
}

// predictResponse extends the engine report with the optional ML payload.
type predictResponse struct {
	domain.PredictionReport
	MLPrediction map[string]interface{} `json:"mlPrediction,omitempty"`
	MLTimestamp  string                 `json:"mlTimestamp,omitempty"`
	MLError      string                 `json:"mlError,omitempty"`
}

// handlePredict runs the rule engine over the submitted clinical data and
// optionally merges external ML output.
func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.ClinicalData) == 0 {
		respondError(c, http.StatusBadRequest, "Clinical data is required for prediction")
		return
	}

	data, err := s.collectClinicalData(req.ClinicalData)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	report, err := s.engine.Predict(data)
	if err != nil {
		if domain.IsEngineError(err, domain.ErrUnknownParameter) ||
			domain.IsEngineError(err, domain.ErrInvalidValue) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		s.log.WithError(err).Error("Prediction failed")
		respondError(c, http.StatusInternalServerError, "Failed to generate predictions")
		return
	}

	response := predictResponse{PredictionReport: *report}

	useML := req.UseMLModel == nil || *req.UseMLModel
	mlUsed := false
	if useML && s.mlClient != nil {
		mlResult, mlErr := s.mlClient.Predict(c.Request.Context(), data)
		response.MLTimestamp = time.Now().UTC().Format(time.RFC3339)
		if mlErr != nil {
			s.log.WithError(mlErr).Warn("ML prediction unavailable, returning rule-based output only")
			response.MLError = mlErr.Error()
		} else {
			response.MLPrediction = mlResult
			mlUsed = true
		}
	}

	s.recordPrediction(c, report, len(data), mlUsed)
	s.broadcastPrediction(c, report)

	respond(c, http.StatusOK, response, "Predictions generated successfully")
}

// collectClinicalData validates the raw payload and collapses JSON nulls to
// key absence. Unknown parameters and negative or non-finite values are
// rejected before they reach the engine.
func (s *Server) collectClinicalData(raw map[string]*float64) (domain.ClinicalDataSet, error) {
	data := make(domain.ClinicalDataSet, len(raw))
	for id, value := range raw {
		if !s.catalog.Has(id) {
			return nil, domain.NewEngineError(domain.ErrUnknownParameter,
				"unknown clinical parameter: "+id)
		}
		if value == nil {
			continue
		}
		if *value < 0 {
			return nil, domain.NewEngineError(domain.ErrValidation,
				"parameter "+id+" must not be negative")
		}
		data[id] = *value
	}
	return data, nil
}

// recordPrediction writes an audit entry for a served prediction. Audit
// failures are logged, never surfaced to the caller.
func (s *Server) recordPrediction(c *gin.Context, report *domain.PredictionReport, paramCount int, mlUsed bool) {
	if s.auditStore == nil || len(report.Predictions) == 0 {
		return
	}

	top := report.Predictions[0]
	record := &audit.Record{
		CorrelationID:  c.GetString("correlation_id"),
		ClientIP:       c.ClientIP(),
		ParameterCount: paramCount,
		AbnormalCount:  len(report.AbnormalParams),
		TopDisease:     top.Name,
		TopProbability: top.Probability,
		RiskLevel:      string(top.Severity),
		MLUsed:         mlUsed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.auditStore.Save(ctx, record); err != nil {
		s.log.WithFields(logrus.Fields{
			"correlation_id": record.CorrelationID,
			"error":          err,
		}).Error("Failed to write prediction audit record")
	}
}

// broadcastPrediction pushes a summary of the prediction to live-feed clients.
func (s *Server) broadcastPrediction(c *gin.Context, report *domain.PredictionReport) {
	if len(report.Predictions) == 0 {
		return
	}
	top := report.Predictions[0]
	s.hub.Broadcast(PredictionEvent{
		CorrelationID:  c.GetString("correlation_id"),
		TopDisease:     top.Name,
		TopProbability: top.Probability,
		RiskLevel:      string(top.Severity),
		AbnormalCount:  len(report.AbnormalParams),
		Timestamp:      time.Now().UTC(),
	})
}

// createPatientRequest is the patient creation payload.
type createPatientRequest struct {
	FullName     string                     `json:"fullname"`
	Age          *int                       `json:"age"`
	Gender       string                     `json:"gender"`
	BloodGroup   string                     `json:"bloodGroup"`
	Mobile       string                     `json:"mobile"`
	ClinicalData map[string]*float64        `json:"clinicalData"`
	Predictions  []domain.DiseasePrediction `json:"predictions"`
}

func (s *Server) handleCreatePatient(c *gin.Context) {
	if s.patients == nil {
		respondError(c, http.StatusServiceUnavailable, "Patient storage is not configured")
		return
	}

	var req createPatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.FullName == "" || req.Age == nil || req.Gender == "" || req.BloodGroup == "" || req.Mobile == "" {
		respondError(c, http.StatusBadRequest, "Please provide all required demographic fields")
		return
	}
	if req.ClinicalData == nil {
		respondError(c, http.StatusBadRequest, "Clinical data is required")
		return
	}

	record := &domain.PatientRecord{
		FullName:    req.FullName,
		Age:         *req.Age,
		Gender:      req.Gender,
		BloodGroup:  req.BloodGroup,
		Mobile:      req.Mobile,
		Predictions: req.Predictions,
	}

	data, err := s.collectClinicalData(req.ClinicalData)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	record.ClinicalData = data

	if err := validatePatient(record); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.patients.Create(c.Request.Context(), record); err != nil {
		s.log.WithError(err).Error("Failed to create patient record")
		respondError(c, http.StatusInternalServerError, "Failed to create patient record")
		return
	}

	respond(c, http.StatusCreated, record, "Patient record created successfully")
}

func (s *Server) handleListPatients(c *gin.Context) {
	if s.patients == nil {
		respondError(c, http.StatusServiceUnavailable, "Patient storage is not configured")
		return
	}

	records, err := s.patients.List(c.Request.Context())
	if err != nil {
		s.log.WithError(err).Error("Failed to list patient records")
		respondError(c, http.StatusInternalServerError, "Failed to retrieve patient records")
		return
	}

	respond(c, http.StatusOK, records, "Patient records retrieved successfully")
}

func (s *Server) handleGetPatient(c *gin.Context) {
	if s.patients == nil {
		respondError(c, http.StatusServiceUnavailable, "Patient storage is not configured")
		return
	}

	record, err := s.patients.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Patient record not found")
			return
		}
		s.log.WithError(err).Error("Failed to get patient record")
		respondError(c, http.StatusInternalServerError, "Failed to retrieve patient record")
		return
	}

	respond(c, http.StatusOK, record, "Patient record retrieved successfully")
}

// updatePatientRequest allows partial updates: only provided fields change.
type updatePatientRequest struct {
	FullName     *string             `json:"fullname"`
	Age          *int                `json:"age"`
	Gender       *string             `json:"gender"`
	BloodGroup   *string             `json:"bloodGroup"`
	Mobile       *string             `json:"mobile"`
	ClinicalData map[string]*float64 `json:"clinicalData"`
}

func (s *Server) handleUpdatePatient(c *gin.Context) {
	if s.patients == nil {
		respondError(c, http.StatusServiceUnavailable, "Patient storage is not configured")
		return
	}

	var req updatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := s.patients.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Patient record not found")
			return
		}
		s.log.WithError(err).Error("Failed to get patient record")
		respondError(c, http.StatusInternalServerError, "Failed to retrieve patient record")
		return
	}

	if req.FullName != nil {
		record.FullName = *req.FullName
	}
	if req.Age != nil {
		record.Age = *req.Age
	}
	if req.Gender != nil {
		record.Gender = *req.Gender
	}
	if req.BloodGroup != nil {
		record.BloodGroup = *req.BloodGroup
	}
	if req.Mobile != nil {
		record.Mobile = *req.Mobile
	}
	if req.ClinicalData != nil {
		data, err := s.collectClinicalData(req.ClinicalData)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		record.ClinicalData = data
	}

	if err := validatePatient(record); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.patients.Update(c.Request.Context(), record); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Patient record not found")
			return
		}
		s.log.WithError(err).Error("Failed to update patient record")
		respondError(c, http.StatusInternalServerError, "Failed to update patient record")
		return
	}

	respond(c, http.StatusOK, record, "Patient record updated successfully")
}

func (s *Server) handleDeletePatient(c *gin.Context) {
	if s.patients == nil {
		respondError(c, http.StatusServiceUnavailable, "Patient storage is not configured")
		return
	}

	if err := s.patients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			respondError(c, http.StatusNotFound, "Patient record not found")
			return
		}
		s.log.WithError(err).Error("Failed to delete patient record")
		respondError(c, http.StatusInternalServerError, "Failed to delete patient record")
		return
	}

	respond(c, http.StatusOK, nil, "Patient record deleted successfully")
}

// validatePatient enforces the demographic constraints the stored records
// must satisfy.
func validatePatient(record *domain.PatientRecord) error {
	if record.Age < 0 {
		return domain.NewValidationError("age", "age must not be negative", record.Age)
	}
	if !contains(domain.ValidGenders, record.Gender) {
		return domain.NewValidationError("gender", "gender must be one of Male, Female, Other", record.Gender)
	}
	if !contains(domain.ValidBloodGroups, record.BloodGroup) {
		return domain.NewValidationError("bloodGroup", "invalid blood group", record.BloodGroup)
	}
	if !mobilePattern.MatchString(record.Mobile) {
		return domain.NewValidationError("mobile", "Please fill a valid mobile number", record.Mobile)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
