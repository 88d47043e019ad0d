package forecast

import (
	"strings"

	"github.com/lox/greengrid/internal/models"
)

const (
	adviceHigh   = "Delay EV charging and shift heavy appliance use to off-peak hours. Consider reducing AC usage during peak times."
	adviceMedium = "Avoid running multiple heavy appliances together. Schedule EV charging for off-peak hours."
	adviceLow    = "Usage is optimal. Grid is stable and efficient."

	adviceThermostat = " High AC usage detected - consider raising thermostat by 2°C."
	adviceStagger    = " Multiple EVs charging - stagger charging times."

	highACUsageKW   = 50.0
	manyEVsCharging = 5
)

// Advise builds the recommendation for a prediction. The extra clauses only
// consider values the caller supplied explicitly, never resolved defaults.
func Advise(p models.ParameterSet, result models.PredictionResult) string {
	var b strings.Builder
	b.WriteString(baseAdvice(Classify(result.PredictedLoad)))

	if p.ACUsage != nil && *p.ACUsage > highACUsageKW {
		b.WriteString(adviceThermostat)
	}
	if p.EVCount != nil && *p.EVCount > manyEVsCharging {
		b.WriteString(adviceStagger)
	}
	return b.String()
}

func baseAdvice(tier models.RiskTier) string {
	switch tier {
	case models.RiskHigh:
		return adviceHigh
	case models.RiskMedium:
		return adviceMedium
	default:
		return adviceLow
	}
}
