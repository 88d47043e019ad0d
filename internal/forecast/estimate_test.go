package forecast

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/greengrid/internal/models"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{2.675, 2.68},
		{1.005, 1.01},
		{-1.005, -1.01},
		{0.125, 0.13},
		{83.25000000000001, 83.25},
		{392.59999999999997, 392.6},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Round2(tt.in), "Round2(%v)", tt.in)
	}
}

func TestTimeFactor(t *testing.T) {
	tests := []struct {
		hour int
		want float64
	}{
		{0, 0.9},
		{5, 0.9},
		{6, 1.1},
		{8, 1.1},
		{9, 0.9},
		{17, 0.9},
		{18, 1.3},
		{21, 1.3},
		{22, 0.9},
		{23, 0.9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeFactor(tt.hour), "hour %d", tt.hour)
	}
}

func TestTemperatureEffect(t *testing.T) {
	tests := []struct {
		name string
		temp float64
		want float64
	}{
		{"comfort band upper edge", 28, 0},
		{"comfort band lower edge", 20, 0},
		{"comfortable", 24, 0},
		{"hot", 30, 4},
		{"just above band", 29, 2},
		{"cold", 10, 15},
		{"just below band", 19, 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TemperatureEffect(tt.temp))
		})
	}
}

func TestEstimate_PeakLargeCommunity(t *testing.T) {
	p := models.ResolvedParams{
		CurrentLoad:   150,
		Temperature:   30,
		EVCount:       2,
		TimeOfDay:     19,
		CommunitySize: 200,
	}

	got := Estimate(p)

	assert.Equal(t, 392.6, got.PredictedLoad)
	assert.Equal(t, models.RiskHigh, got.Risk)

	want := models.Components{
		{Name: models.ComponentBaseLoad, Value: 90},
		{Name: models.ComponentTemperature, Value: 9},
		{Name: models.ComponentEVCharging, Value: 50},
		{Name: models.ComponentAppliances, Value: 0},
		{Name: models.ComponentACHeating, Value: 2},
		{Name: models.ComponentTimeFactor, Value: 1.3},
		{Name: models.ComponentCommunityFactor, Value: 2},
	}
	assert.Equal(t, want, got.Components)
}

func TestEstimate_DefaultsWithoutHistory(t *testing.T) {
	noon := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	p := Resolve(models.ParameterSet{}, nil, noon)

	require.Equal(t, DefaultCurrentLoad, p.CurrentLoad)
	require.Equal(t, DefaultTemperature, p.Temperature)
	require.Equal(t, DefaultEVCount, p.EVCount)

	got := Estimate(p)
	tf, _ := got.Components.Get(models.ComponentTimeFactor)

	assert.Equal(t, 0.9, tf)
	assert.Equal(t, 83.25, got.PredictedLoad)
	assert.Equal(t, models.RiskLow, got.Risk)
}

func TestEstimate_HeatingAndAppliances(t *testing.T) {
	p := models.ResolvedParams{
		CurrentLoad:   100,
		Temperature:   10,
		ApplianceLoad: 5,
		ACUsage:       10,
		HeatingUsage:  20,
		TimeOfDay:     3,
		CommunitySize: 100,
	}

	got := Estimate(p)

	acHeating, ok := got.Components.Get(models.ComponentACHeating)
	require.True(t, ok)
	assert.Equal(t, 29.5, acHeating)
	appliances, _ := got.Components.Get(models.ComponentAppliances)
	assert.Equal(t, 6.0, appliances)
	assert.Equal(t, 88.65, got.PredictedLoad)
	assert.Equal(t, models.RiskLow, got.Risk)
}

func TestEstimate_ComponentsReconcile(t *testing.T) {
	inputs := []models.ResolvedParams{
		{CurrentLoad: 150, Temperature: 30, EVCount: 2, TimeOfDay: 19, CommunitySize: 200},
		{CurrentLoad: 100, Temperature: 25, EVCount: 1, TimeOfDay: 12, CommunitySize: 100},
		{CurrentLoad: 250, Temperature: 15, EVCount: 4, ApplianceLoad: 10, HeatingUsage: 30, TimeOfDay: 7, CommunitySize: 150},
		{CurrentLoad: 0, Temperature: 40, EVCount: 0, ACUsage: 60, TimeOfDay: 20, CommunitySize: 50},
	}

	for _, p := range inputs {
		got := Estimate(p)

		var sum float64
		for _, name := range []string{
			models.ComponentBaseLoad,
			models.ComponentTemperature,
			models.ComponentEVCharging,
			models.ComponentAppliances,
			models.ComponentACHeating,
		} {
			v, ok := got.Components.Get(name)
			require.True(t, ok, name)
			sum += v
		}
		tf, _ := got.Components.Get(models.ComponentTimeFactor)
		cf, _ := got.Components.Get(models.ComponentCommunityFactor)

		assert.InDelta(t, got.PredictedLoad, sum*tf*cf, 0.01, "%+v", p)
	}
}

func TestEstimate_AgreesWithClassifier(t *testing.T) {
	for load := 0.0; load <= 500; load += 12.5 {
		for hour := 0; hour < 24; hour++ {
			got := Estimate(models.ResolvedParams{
				CurrentLoad:   load,
				Temperature:   31,
				EVCount:       3,
				TimeOfDay:     hour,
				CommunitySize: 120,
			})
			assert.Equal(t, Classify(got.PredictedLoad), got.Risk)
		}
	}
}

func TestEstimate_Idempotent(t *testing.T) {
	p := models.ResolvedParams{CurrentLoad: 180, Temperature: 33, EVCount: 3, ACUsage: 55, TimeOfDay: 20, CommunitySize: 110}
	assert.Equal(t, Estimate(p), Estimate(p))
}

func TestRound2_NonFinitePassesThrough(t *testing.T) {
	assert.True(t, math.IsInf(Round2(math.Inf(1)), 1))
	assert.True(t, math.IsInf(Round2(math.Inf(-1)), -1))
	assert.True(t, math.IsNaN(Round2(math.NaN())))
}

func TestEstimable(t *testing.T) {
	tests := []struct {
		name string
		p    models.ResolvedParams
		want bool
	}{
		{"typical", models.ResolvedParams{CurrentLoad: 150, Temperature: 30, EVCount: 2, TimeOfDay: 19, CommunitySize: 200}, true},
		{"huge load overflows at peak", models.ResolvedParams{CurrentLoad: 1e308, Temperature: 25, TimeOfDay: 19, CommunitySize: 1000}, false},
		{"off-peak hour still checked at peak factor", models.ResolvedParams{CurrentLoad: 1.5e308, Temperature: 25, TimeOfDay: 3, CommunitySize: 200}, false},
		{"huge community", models.ResolvedParams{CurrentLoad: 1e300, Temperature: 25, TimeOfDay: 3, CommunitySize: math.MaxInt}, false},
		{"extreme cold", models.ResolvedParams{CurrentLoad: 100, Temperature: -math.MaxFloat64, TimeOfDay: 3, CommunitySize: 100}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimable(tt.p))
		})
	}
}

func TestEstimate_OverflowDoesNotPanic(t *testing.T) {
	p := models.ResolvedParams{CurrentLoad: 1e308, Temperature: 25, TimeOfDay: 19, CommunitySize: 1000}
	require.NotPanics(t, func() {
		result := Estimate(p)
		assert.True(t, math.IsInf(result.PredictedLoad, 1))
		assert.Equal(t, models.RiskHigh, result.Risk)
	})
}
