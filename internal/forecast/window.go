package forecast

import "github.com/lox/greengrid/internal/models"

// WindowHours is the number of forecast entries, starting at the base hour.
const WindowHours = 4

// Forecast re-runs Estimate for the base hour and the following three hours,
// varying only the time of day. Hours wrap at midnight.
func Forecast(p models.ResolvedParams) []models.ForecastEntry {
	entries := make([]models.ForecastEntry, 0, WindowHours)
	for offset := 0; offset < WindowHours; offset++ {
		hour := (p.TimeOfDay + offset) % 24

		local := p
		local.TimeOfDay = hour
		result := Estimate(local)

		entries = append(entries, models.ForecastEntry{
			HourOffset:    offset,
			TimeOfDay:     hour,
			PredictedLoad: result.PredictedLoad,
			Risk:          result.Risk,
		})
	}
	return entries
}
