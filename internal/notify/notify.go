package notify

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lox/greengrid/internal/forecast"
	"github.com/lox/greengrid/internal/metrics"
	"github.com/lox/greengrid/internal/models"
)

const (
	StatusSent = "sent"

	reachRate = 0.8
)

// Notifier simulates dispatching a risk alert to the community. Nothing is
// delivered; the returned record only describes the intent.
type Notifier struct {
	now func() time.Time
}

func New() *Notifier {
	return &Notifier{now: time.Now}
}

// NewWithClock is used by tests to pin the timestamp.
func NewWithClock(now func() time.Time) *Notifier {
	return &Notifier{now: now}
}

func (n *Notifier) Notify(communitySize *int, risk models.RiskTier, predictedLoad float64) models.NotificationRecord {
	size := forecast.DefaultCommunitySize
	if communitySize != nil {
		size = *communitySize
	}

	metrics.NotificationsTotal.WithLabelValues(string(risk)).Inc()

	return models.NotificationRecord{
		ID:                uuid.NewString(),
		Status:            StatusSent,
		Risk:              risk,
		PredictedLoad:     predictedLoad,
		NotifiedCustomers: NotifiedCustomers(size),
		Timestamp:         n.now().UTC().Format(time.RFC3339Nano),
	}
}

// NotifiedCustomers is 80% of households, rounded down, and never below one.
func NotifiedCustomers(communitySize int) int {
	return max(1, int(math.Floor(float64(communitySize)*reachRate)))
}
