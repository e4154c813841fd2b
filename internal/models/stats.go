package models

// Stats backs the admin dashboard counters.
type Stats struct {
	TotalAlerts      int                   `json:"totalAlerts"`
	UnverifiedAlerts int                   `json:"unverifiedAlerts"`
	BySeverity       map[AlertSeverity]int `json:"bySeverity"`
	ByType           map[AlertType]int     `json:"byType"`
	Last24h          int                   `json:"last24h"`
	TotalUsers       int                   `json:"totalUsers"`
	VerifiedUsers    int                   `json:"verifiedUsers"`
	BlockedUsers     int                   `json:"blockedUsers"`
}
