package api

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lox/greengrid/internal/forecast"
	"github.com/lox/greengrid/internal/models"
)

// summarize computes descriptive statistics over records. The standard
// deviation is the sample deviation and is zero for fewer than two records.
func summarize(records []models.HistoricalRecord) models.HistorySummary {
	if len(records) == 0 {
		return models.HistorySummary{}
	}

	loads := make([]float64, len(records))
	temps := make([]float64, len(records))
	evs := make([]float64, len(records))
	for i, rec := range records {
		loads[i] = rec.LoadKW
		temps[i] = rec.Temperature
		evs[i] = float64(rec.EVCharging)
	}

	mean, std := stat.MeanStdDev(loads, nil)
	if len(records) < 2 {
		std = 0
	}
	peak := floats.MaxIdx(loads)

	return models.HistorySummary{
		Count:           len(records),
		MeanLoadKW:      forecast.Round2(mean),
		StdDevLoadKW:    forecast.Round2(std),
		PeakLoadKW:      loads[peak],
		PeakHour:        records[peak].Hour,
		MeanTemperature: forecast.Round2(stat.Mean(temps, nil)),
		EVChargingShare: forecast.Round2(stat.Mean(evs, nil)),
	}
}
