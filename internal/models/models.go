package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RiskTier is the ordered classification of predicted grid load.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// ParseRiskTier accepts exactly LOW, MEDIUM or HIGH.
func ParseRiskTier(s string) (RiskTier, error) {
	switch RiskTier(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskTier(s), nil
	}
	return "", fmt.Errorf("unknown risk tier %q", s)
}

// ParameterSet is caller input. Every field is optional; nil means "not supplied".
type ParameterSet struct {
	CurrentLoad   *float64 `json:"current_load,omitempty"`
	Temperature   *float64 `json:"temperature,omitempty"`
	EVCount       *int     `json:"ev_count,omitempty"`
	ApplianceLoad *float64 `json:"appliance_load,omitempty"`
	ACUsage       *float64 `json:"ac_usage,omitempty"`
	HeatingUsage  *float64 `json:"heating_usage,omitempty"`
	TimeOfDay     *int     `json:"time_of_day,omitempty"`
	CommunitySize *int     `json:"community_size,omitempty"`
}

// ResolvedParams is a ParameterSet with every field populated.
type ResolvedParams struct {
	CurrentLoad   float64
	Temperature   float64
	EVCount       int
	ApplianceLoad float64
	ACUsage       float64
	HeatingUsage  float64
	TimeOfDay     int
	CommunitySize int
}

// HistoricalRecord is one hourly row of the read-only dataset.
type HistoricalRecord struct {
	Hour        int     `json:"hour"`
	LoadKW      float64 `json:"load_kw"`
	Temperature float64 `json:"temperature"`
	EVCharging  int     `json:"ev_charging"`
}

// Component names, in reporting order.
const (
	ComponentBaseLoad        = "base_load"
	ComponentTemperature     = "temperature"
	ComponentEVCharging      = "ev_charging"
	ComponentAppliances      = "appliances"
	ComponentACHeating       = "ac_heating"
	ComponentTimeFactor      = "time_factor"
	ComponentCommunityFactor = "community_factor"
)

type Component struct {
	Name  string
	Value float64
}

// Components keeps insertion order and marshals as a JSON object in that order.
type Components []Component

// Get returns the value of the named component.
func (c Components) Get(name string) (float64, bool) {
	for _, comp := range c {
		if comp.Name == name {
			return comp.Value, true
		}
	}
	return 0, false
}

func (c Components) MarshalJSON() ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, comp := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(comp.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(comp.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type PredictionResult struct {
	PredictedLoad float64    `json:"predicted_load"`
	Risk          RiskTier   `json:"risk"`
	Components    Components `json:"components,omitempty"`
}

type ForecastEntry struct {
	HourOffset    int      `json:"hour_offset"`
	TimeOfDay     int      `json:"time_of_day"`
	PredictedLoad float64  `json:"predicted_load"`
	Risk          RiskTier `json:"risk"`
}

type NotificationRecord struct {
	ID                string   `json:"notification_id"`
	Status            string   `json:"status"`
	Risk              RiskTier `json:"risk"`
	PredictedLoad     float64  `json:"predicted_load"`
	NotifiedCustomers int      `json:"notified_customers"`
	Timestamp         string   `json:"timestamp"`
}

// HistorySummary describes the most recent window of historical records.
type HistorySummary struct {
	Count           int     `json:"count"`
	MeanLoadKW      float64 `json:"mean_load_kw"`
	StdDevLoadKW    float64 `json:"stddev_load_kw"`
	PeakLoadKW      float64 `json:"peak_load_kw"`
	PeakHour        int     `json:"peak_hour"`
	MeanTemperature float64 `json:"mean_temperature"`
	EVChargingShare float64 `json:"ev_charging_share"`
}
