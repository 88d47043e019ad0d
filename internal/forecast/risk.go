package forecast

import "github.com/lox/greengrid/internal/models"

// Risk tier boundaries in kW.
const (
	MediumRiskThreshold = 200.0
	HighRiskThreshold   = 260.0
)

// Classify maps a predicted load in kW to a risk tier. 200 and 260 are both
// MEDIUM.
func Classify(loadKW float64) models.RiskTier {
	switch {
	case loadKW > HighRiskThreshold:
		return models.RiskHigh
	case loadKW >= MediumRiskThreshold:
		return models.RiskMedium
	default:
		return models.RiskLow
	}
}
