package forecast

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/lox/greengrid/internal/models"
)

const (
	peakTimeFactor    = 1.3
	morningTimeFactor = 1.1
	offPeakTimeFactor = 0.9

	baselineHouseholds = 100.0

	coolingThreshold = 28.0
	heatingThreshold = 20.0
	coolingRate      = 2.0
	heatingRate      = 1.5

	baseLoadWeight    = 0.6
	temperatureWeight = 0.3
	evChargingKW      = 25.0
	applianceWeight   = 1.2
	acWeight          = 0.8
	tempEffectWeight  = 0.5
	heatingWeight     = 0.7
)

// Round2 rounds half away from zero to two decimal places, operating on the
// shortest decimal representation of v so 2.675 becomes 2.68. NaN and ±Inf
// are returned unchanged.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// TimeFactor is 1.3 in the evening peak [18,22), 1.1 in the morning [6,9)
// and 0.9 otherwise.
func TimeFactor(hour int) float64 {
	switch {
	case hour >= 18 && hour < 22:
		return peakTimeFactor
	case hour >= 6 && hour < 9:
		return morningTimeFactor
	default:
		return offPeakTimeFactor
	}
}

func CommunityFactor(households int) float64 {
	return float64(households) / baselineHouseholds
}

// TemperatureEffect models the extra AC or heating draw caused by ambient
// temperature outside the 20-28°C comfort band.
func TemperatureEffect(tempC float64) float64 {
	switch {
	case tempC > coolingThreshold:
		return (tempC - coolingThreshold) * coolingRate
	case tempC < heatingThreshold:
		return (heatingThreshold - tempC) * heatingRate
	default:
		return 0
	}
}

// Estimable reports whether p produces a finite load at every hour of the
// day, so both Estimate and Forecast stay within float64 range.
func Estimable(p models.ResolvedParams) bool {
	v := additiveLoad(p) * peakTimeFactor * CommunityFactor(p.CommunitySize)
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func additiveLoad(p models.ResolvedParams) float64 {
	return baseLoadWeight*p.CurrentLoad +
		temperatureWeight*p.Temperature +
		evChargingKW*float64(p.EVCount) +
		p.ApplianceLoad*applianceWeight +
		p.ACUsage*acWeight + TemperatureEffect(p.Temperature)*tempEffectWeight +
		p.HeatingUsage*heatingWeight
}

// Estimate computes the predicted load and its breakdown. p must already be
// validated and resolved.
func Estimate(p models.ResolvedParams) models.PredictionResult {
	timeFactor := TimeFactor(p.TimeOfDay)
	communityFactor := CommunityFactor(p.CommunitySize)
	tempEffect := TemperatureEffect(p.Temperature)

	base := baseLoadWeight * p.CurrentLoad
	temp := temperatureWeight * p.Temperature
	ev := evChargingKW * float64(p.EVCount)
	appliances := p.ApplianceLoad * applianceWeight
	ac := p.ACUsage*acWeight + tempEffect*tempEffectWeight
	heating := p.HeatingUsage * heatingWeight

	predicted := Round2((base + temp + ev + appliances + ac + heating) * timeFactor * communityFactor)

	return models.PredictionResult{
		PredictedLoad: predicted,
		Risk:          Classify(predicted),
		Components: models.Components{
			{Name: models.ComponentBaseLoad, Value: Round2(base)},
			{Name: models.ComponentTemperature, Value: Round2(temp)},
			{Name: models.ComponentEVCharging, Value: Round2(ev)},
			{Name: models.ComponentAppliances, Value: Round2(appliances)},
			{Name: models.ComponentACHeating, Value: Round2(ac + heating)},
			{Name: models.ComponentTimeFactor, Value: Round2(timeFactor)},
			{Name: models.ComponentCommunityFactor, Value: Round2(communityFactor)},
		},
	}
}
