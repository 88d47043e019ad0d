package ingest

import (
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/lox/greengrid/internal/models"
)

// DefaultGenerateHours is one week of hourly data.
const DefaultGenerateHours = 168

type loadBand struct {
	from, to int // hour of day, [from, to)
	min, max float64
}

var dailyLoadBands = []loadBand{
	{6, 9, 80, 120},    // morning
	{9, 18, 100, 150},  // daytime
	{18, 22, 180, 280}, // evening peak
}

var nightLoadBand = loadBand{min: 60, max: 100}

// Generate builds a synthetic dataset: ambient temperature between 20 and
// 35°C, a coin-flip EV charging flag, and a load that follows the daily
// demand curve plus temperature and EV contributions.
func Generate(hours int, rng *rand.Rand) []models.HistoricalRecord {
	records := make([]models.HistoricalRecord, 0, hours)
	for hour := 0; hour < hours; hour++ {
		temp := uniform(rng, 20, 35)
		ev := rng.IntN(2)

		band := bandFor(hour % 24)
		load := uniform(rng, band.min, band.max) + (temp-25)*2
		if ev == 1 {
			load += uniform(rng, 30, 50)
		}

		records = append(records, models.HistoricalRecord{
			Hour:        hour,
			LoadKW:      roundTo(load, 2),
			Temperature: roundTo(temp, 1),
			EVCharging:  ev,
		})
	}
	return records
}

func bandFor(hourOfDay int) loadBand {
	for _, b := range dailyLoadBands {
		if hourOfDay >= b.from && hourOfDay < b.to {
			return b
		}
	}
	return nightLoadBand
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*rng.Float64()
}

func roundTo(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
