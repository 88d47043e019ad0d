package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"

	"github.com/lox/greengrid/internal/forecast"
	"github.com/lox/greengrid/internal/models"
)

// ValidationError rejects a request before any estimation runs.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DecodeJSON decodes a single JSON value from r into v. Empty input leaves v
// untouched so every parameter falls back to its default; anything after the
// first value is rejected.
func DecodeJSON(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	err := dec.Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		if _, err := dec.Token(); !errors.Is(err, io.EOF) {
			return invalid("body", "unexpected data after JSON value")
		}
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return invalid(typeErr.Field, "must be %s", typeErr.Type)
	}
	return invalid("body", "malformed JSON: %v", err)
}

func decodeBody(r *http.Request, v any) error {
	return DecodeJSON(r.Body, v)
}

// ValidateParams checks every supplied field. Absent fields are always valid.
func ValidateParams(p models.ParameterSet) error {
	nonNegative := []struct {
		field string
		value *float64
	}{
		{"current_load", p.CurrentLoad},
		{"appliance_load", p.ApplianceLoad},
		{"ac_usage", p.ACUsage},
		{"heating_usage", p.HeatingUsage},
	}

	if err := checkFinite("temperature", p.Temperature); err != nil {
		return err
	}
	for _, f := range nonNegative {
		if err := checkFinite(f.field, f.value); err != nil {
			return err
		}
		if f.value != nil && *f.value < 0 {
			return invalid(f.field, "must be non-negative, got %v", *f.value)
		}
	}

	if p.EVCount != nil && *p.EVCount < 0 {
		return invalid("ev_count", "must be non-negative, got %d", *p.EVCount)
	}
	if p.TimeOfDay != nil && (*p.TimeOfDay < 0 || *p.TimeOfDay > 23) {
		return invalid("time_of_day", "must be between 0 and 23, got %d", *p.TimeOfDay)
	}
	if p.CommunitySize != nil && *p.CommunitySize <= 0 {
		return invalid("community_size", "must be positive, got %d", *p.CommunitySize)
	}
	return nil
}

// CheckEstimable rejects resolved parameters whose estimate would leave
// float64 range at some hour of the day. The field reported is the first one
// that, reset to its default, brings the estimate back into range.
func CheckEstimable(resolved models.ResolvedParams) error {
	if forecast.Estimable(resolved) {
		return nil
	}

	resets := []struct {
		field string
		reset func(*models.ResolvedParams)
	}{
		{"current_load", func(r *models.ResolvedParams) { r.CurrentLoad = 0 }},
		{"temperature", func(r *models.ResolvedParams) { r.Temperature = forecast.DefaultTemperature }},
		{"ev_count", func(r *models.ResolvedParams) { r.EVCount = 0 }},
		{"appliance_load", func(r *models.ResolvedParams) { r.ApplianceLoad = 0 }},
		{"ac_usage", func(r *models.ResolvedParams) { r.ACUsage = 0 }},
		{"heating_usage", func(r *models.ResolvedParams) { r.HeatingUsage = 0 }},
		{"community_size", func(r *models.ResolvedParams) { r.CommunitySize = forecast.DefaultCommunitySize }},
	}
	for _, rs := range resets {
		r := resolved
		rs.reset(&r)
		if forecast.Estimable(r) {
			return invalid(rs.field, "too large to estimate")
		}
	}
	return invalid("body", "parameters too large to estimate")
}

func checkFinite(field string, v *float64) error {
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return invalid(field, "must be a finite number")
	}
	return nil
}

type notifyRequest struct {
	Params        models.ParameterSet `json:"params"`
	PredictedLoad *float64            `json:"predicted_load"`
	Risk          string              `json:"risk"`
}

func (req notifyRequest) validate() (models.RiskTier, error) {
	if err := ValidateParams(req.Params); err != nil {
		var ve *ValidationError
		if errors.As(err, &ve) {
			ve.Field = "params." + ve.Field
		}
		return "", err
	}
	if req.PredictedLoad == nil {
		return "", invalid("predicted_load", "is required")
	}
	if err := checkFinite("predicted_load", req.PredictedLoad); err != nil {
		return "", err
	}
	risk, err := models.ParseRiskTier(req.Risk)
	if err != nil {
		return "", invalid("risk", "must be one of LOW, MEDIUM, HIGH")
	}
	return risk, nil
}
