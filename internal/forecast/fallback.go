package forecast

import "github.com/lox/greengrid/internal/models"

// The GET endpoints predate the full estimator and use a reduced formula with
// no time, community, appliance or HVAC terms. Kept as-is for existing clients.

const (
	fallbackAdviceHigh   = "Delay EV charging and shift heavy appliance use to off-peak hours."
	fallbackAdviceMedium = "Avoid running multiple heavy appliances together."
	fallbackAdviceLow    = "Usage is optimal."
)

// FallbackLoad is 0.6*load + 0.3*temperature + 25*evFlag, unrounded.
func FallbackLoad(rec models.HistoricalRecord) float64 {
	return baseLoadWeight*rec.LoadKW + temperatureWeight*rec.Temperature + evChargingKW*float64(rec.EVCharging)
}

// FallbackPredict rounds the fallback load and classifies it. With no record
// it reports zero load at LOW risk.
func FallbackPredict(rec *models.HistoricalRecord) models.PredictionResult {
	if rec == nil {
		return models.PredictionResult{PredictedLoad: 0, Risk: models.RiskLow}
	}
	load := Round2(FallbackLoad(*rec))
	return models.PredictionResult{PredictedLoad: load, Risk: Classify(load)}
}

// FallbackAdvise thresholds the unrounded fallback load.
func FallbackAdvise(rec *models.HistoricalRecord) string {
	if rec == nil {
		return fallbackAdviceLow
	}
	switch load := FallbackLoad(*rec); {
	case load > HighRiskThreshold:
		return fallbackAdviceHigh
	case load >= MediumRiskThreshold:
		return fallbackAdviceMedium
	default:
		return fallbackAdviceLow
	}
}
