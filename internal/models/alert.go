package models

import "time"

type AlertType string

const (
	AlertTypeFlood      AlertType = "Flood"
	AlertTypeFire       AlertType = "Fire"
	AlertTypeEarthquake AlertType = "Earthquake"
	AlertTypeHurricane  AlertType = "Hurricane"
	AlertTypeTornado    AlertType = "Tornado"
	AlertTypeTsunami    AlertType = "Tsunami"
	AlertTypeLandslide  AlertType = "Landslide"
	AlertTypeOther      AlertType = "Other"
)

// AlertTypes lists every accepted disaster type.
var AlertTypes = []AlertType{
	AlertTypeFlood,
	AlertTypeFire,
	AlertTypeEarthquake,
	AlertTypeHurricane,
	AlertTypeTornado,
	AlertTypeTsunami,
	AlertTypeLandslide,
	AlertTypeOther,
}

func (t AlertType) Valid() bool {
	for _, v := range AlertTypes {
		if t == v {
			return true
		}
	}
	return false
}

type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "Low"
	AlertSeverityMedium   AlertSeverity = "Medium"
	AlertSeverityHigh     AlertSeverity = "High"
	AlertSeverityCritical AlertSeverity = "Critical"
)

// AlertSeverities is ordered by ascending urgency.
var AlertSeverities = []AlertSeverity{
	AlertSeverityLow,
	AlertSeverityMedium,
	AlertSeverityHigh,
	AlertSeverityCritical,
}

// Rank returns the urgency position of s, or -1 when s is not a known severity.
func (s AlertSeverity) Rank() int {
	for i, v := range AlertSeverities {
		if s == v {
			return i
		}
	}
	return -1
}

func (s AlertSeverity) Valid() bool {
	return s.Rank() >= 0
}

type AlertStatus string

const (
	AlertStatusNew    AlertStatus = "new"
	AlertStatusActive AlertStatus = "active"
)

// Author is the snapshot of the submitting user stored with each alert.
type Author struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Verified bool   `json:"verified"`
}

type Alert struct {
	ID        string        `json:"id"`
	Location  string        `json:"location"`
	Type      AlertType     `json:"type"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"` // set once at submission
	Status    AlertStatus   `json:"status"`
	Verified  bool          `json:"verified"`
	CreatedBy Author        `json:"createdBy"`
}
