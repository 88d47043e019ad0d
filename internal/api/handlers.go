package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/lox/greengrid/internal/chart"
	"github.com/lox/greengrid/internal/forecast"
	"github.com/lox/greengrid/internal/metrics"
	"github.com/lox/greengrid/internal/models"
)

const recentWindow = 24

const (
	formulaFull     = "full"
	formulaFallback = "fallback"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "GreenGrid API is running"})
}

type healthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.Recent(r.Context(), math.MaxInt32)
	if err != nil {
		s.log.Warn().Err(err).Msg("health check: history unavailable")
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Records: len(records)})
}

func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.Recent(r.Context(), recentWindow)
	if err != nil {
		s.historyError(w, err)
		return
	}
	if records == nil {
		records = []models.HistoricalRecord{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]models.HistoricalRecord{"data": records})
}

func (s *Server) handleDataSummary(w http.ResponseWriter, r *http.Request) {
	records, err := s.history.Recent(r.Context(), recentWindow)
	if err != nil {
		s.historyError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summarize(records))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	params, ok := s.readParams(w, r)
	if !ok {
		return
	}
	result, ok := s.estimate(w, r, params)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePredictFallback(w http.ResponseWriter, r *http.Request) {
	latest, err := s.history.Latest(r.Context())
	if err != nil {
		s.historyError(w, err)
		return
	}
	result := forecast.FallbackPredict(latest)
	metrics.PredictionsTotal.WithLabelValues(formulaFallback, string(result.Risk)).Inc()
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecommendation(w http.ResponseWriter, r *http.Request) {
	params, ok := s.readParams(w, r)
	if !ok {
		return
	}
	result, ok := s.estimate(w, r, params)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"recommendation": forecast.Advise(params, result)})
}

func (s *Server) handleRecommendationFallback(w http.ResponseWriter, r *http.Request) {
	latest, err := s.history.Latest(r.Context())
	if err != nil {
		s.historyError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"recommendation": forecast.FallbackAdvise(latest)})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	params, ok := s.readParams(w, r)
	if !ok {
		return
	}
	resolved, err := s.resolve(r, params)
	if err != nil {
		s.resolveError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, forecast.Forecast(resolved))
}

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := decodeBody(r, &req); err != nil {
		s.validationError(w, err)
		return
	}
	risk, err := req.validate()
	if err != nil {
		s.validationError(w, err)
		return
	}

	record := s.notifier.Notify(req.Params.CommunitySize, risk, *req.PredictedLoad)
	s.log.Info().
		Str("notification_id", record.ID).
		Str("risk", string(record.Risk)).
		Int("customers", record.NotifiedCustomers).
		Msg("customer notification recorded")
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.chartCache.Get(); ok {
		s.writePNG(w, data)
		return
	}

	records, err := s.history.Recent(r.Context(), recentWindow)
	if err != nil {
		s.historyError(w, err)
		return
	}
	var latest *models.HistoricalRecord
	if len(records) > 0 {
		latest = &records[len(records)-1]
	}
	resolved := forecast.Resolve(models.ParameterSet{}, latest, s.now().In(s.loc))

	data, err := chart.Render(chart.Data{History: records, Forecast: forecast.Forecast(resolved)})
	if err != nil {
		s.log.Error().Err(err).Msg("render chart")
		s.writeError(w, http.StatusInternalServerError, "", "chart rendering failed")
		return
	}
	s.chartCache.Set(data)
	s.writePNG(w, data)
}

// readParams decodes and validates a ParameterSet body, writing a 400 on
// failure.
func (s *Server) readParams(w http.ResponseWriter, r *http.Request) (models.ParameterSet, bool) {
	var params models.ParameterSet
	if err := decodeBody(r, &params); err != nil {
		s.validationError(w, err)
		return params, false
	}
	if err := ValidateParams(params); err != nil {
		s.validationError(w, err)
		return params, false
	}
	return params, true
}

// resolve fills params from the latest record and rejects combinations that
// cannot be estimated. History failures are returned unwrapped; estimation
// failures are a *ValidationError.
func (s *Server) resolve(r *http.Request, params models.ParameterSet) (models.ResolvedParams, error) {
	latest, err := s.history.Latest(r.Context())
	if err != nil {
		return models.ResolvedParams{}, err
	}
	resolved := forecast.Resolve(params, latest, s.now().In(s.loc))
	if err := CheckEstimable(resolved); err != nil {
		return models.ResolvedParams{}, err
	}
	return resolved, nil
}

func (s *Server) estimate(w http.ResponseWriter, r *http.Request, params models.ParameterSet) (models.PredictionResult, bool) {
	resolved, err := s.resolve(r, params)
	if err != nil {
		s.resolveError(w, err)
		return models.PredictionResult{}, false
	}
	result := forecast.Estimate(resolved)
	metrics.PredictionsTotal.WithLabelValues(formulaFull, string(result.Risk)).Inc()
	return result, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("encode JSON response")
	}
}

func (s *Server) writePNG(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=60")
	w.Write(data)
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, status int, field, message string) {
	s.writeJSON(w, status, errorResponse{Error: message, Field: field})
}

func (s *Server) validationError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		ve = &ValidationError{Field: "body", Message: err.Error()}
	}
	metrics.ValidationFailuresTotal.WithLabelValues(ve.Field).Inc()
	s.writeError(w, http.StatusBadRequest, ve.Field, ve.Error())
}

func (s *Server) resolveError(w http.ResponseWriter, err error) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		s.validationError(w, ve)
		return
	}
	s.historyError(w, err)
}

func (s *Server) historyError(w http.ResponseWriter, err error) {
	s.log.Error().Err(err).Msg("historical data unavailable")
	s.writeError(w, http.StatusInternalServerError, "", "historical data unavailable")
}
