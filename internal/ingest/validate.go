package ingest

import (
	"math"

	"github.com/lox/greengrid/internal/models"
)

const (
	FlagHourNegative      = "hour_negative"
	FlagLoadNotFinite     = "load_not_finite"
	FlagLoadNegative      = "load_negative"
	FlagTempNotFinite     = "temp_not_finite"
	FlagTempOutOfRange    = "temp_out_of_range"
	FlagEVChargingInvalid = "ev_charging_invalid"
)

// ValidateRecord returns the quality flags raised by a historical record.
// A record with any flag is unusable as an estimator input.
func ValidateRecord(rec models.HistoricalRecord) []string {
	var flags []string

	if rec.Hour < 0 {
		flags = append(flags, FlagHourNegative)
	}

	switch {
	case math.IsNaN(rec.LoadKW) || math.IsInf(rec.LoadKW, 0):
		flags = append(flags, FlagLoadNotFinite)
	case rec.LoadKW < 0:
		flags = append(flags, FlagLoadNegative)
	}

	switch {
	case math.IsNaN(rec.Temperature) || math.IsInf(rec.Temperature, 0):
		flags = append(flags, FlagTempNotFinite)
	case rec.Temperature < -50 || rec.Temperature > 60:
		flags = append(flags, FlagTempOutOfRange)
	}

	if rec.EVCharging != 0 && rec.EVCharging != 1 {
		flags = append(flags, FlagEVChargingInvalid)
	}

	return flags
}
