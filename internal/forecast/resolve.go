package forecast

import (
	"time"

	"github.com/lox/greengrid/internal/models"
)

const (
	DefaultCurrentLoad   = 100.0
	DefaultTemperature   = 25.0
	DefaultEVCount       = 1
	DefaultCommunitySize = 100
)

// Resolve fills every missing field of p. Observed fields fall back to the
// latest historical record and then to built-in constants; the remaining
// fields default to zero load, the hour of now, and 100 households.
func Resolve(p models.ParameterSet, latest *models.HistoricalRecord, now time.Time) models.ResolvedParams {
	load, temp, evs := DefaultCurrentLoad, DefaultTemperature, DefaultEVCount
	if latest != nil {
		load, temp, evs = latest.LoadKW, latest.Temperature, latest.EVCharging
	}

	return models.ResolvedParams{
		CurrentLoad:   floatOr(p.CurrentLoad, load),
		Temperature:   floatOr(p.Temperature, temp),
		EVCount:       intOr(p.EVCount, evs),
		ApplianceLoad: floatOr(p.ApplianceLoad, 0),
		ACUsage:       floatOr(p.ACUsage, 0),
		HeatingUsage:  floatOr(p.HeatingUsage, 0),
		TimeOfDay:     intOr(p.TimeOfDay, now.Hour()),
		CommunitySize: intOr(p.CommunitySize, DefaultCommunitySize),
	}
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
