package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lox/greengrid/internal/models"
)

func TestResolve(t *testing.T) {
	at := time.Date(2024, 3, 10, 19, 45, 0, 0, time.UTC)
	latest := &models.HistoricalRecord{Hour: 167, LoadKW: 212.4, Temperature: 31.2, EVCharging: 1}

	tests := []struct {
		name   string
		params models.ParameterSet
		latest *models.HistoricalRecord
		want   models.ResolvedParams
	}{
		{
			name: "constants when nothing is known",
			want: models.ResolvedParams{CurrentLoad: 100, Temperature: 25, EVCount: 1, TimeOfDay: 19, CommunitySize: 100},
		},
		{
			name:   "latest record fills observed fields",
			latest: latest,
			want:   models.ResolvedParams{CurrentLoad: 212.4, Temperature: 31.2, EVCount: 1, TimeOfDay: 19, CommunitySize: 100},
		},
		{
			name: "explicit values win over history",
			params: models.ParameterSet{
				CurrentLoad:   floatPtr(0),
				Temperature:   floatPtr(-5),
				EVCount:       intPtr(0),
				ApplianceLoad: floatPtr(3),
				ACUsage:       floatPtr(4),
				HeatingUsage:  floatPtr(5),
				TimeOfDay:     intPtr(0),
				CommunitySize: intPtr(40),
			},
			latest: latest,
			want: models.ResolvedParams{
				CurrentLoad:   0,
				Temperature:   -5,
				EVCount:       0,
				ApplianceLoad: 3,
				ACUsage:       4,
				HeatingUsage:  5,
				TimeOfDay:     0,
				CommunitySize: 40,
			},
		},
		{
			name:   "partial input mixes sources",
			params: models.ParameterSet{Temperature: floatPtr(18)},
			latest: latest,
			want:   models.ResolvedParams{CurrentLoad: 212.4, Temperature: 18, EVCount: 1, TimeOfDay: 19, CommunitySize: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.params, tt.latest, at))
		})
	}
}
