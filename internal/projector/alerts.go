package projector

import (
	"strconv"
	"time"
)

// Alert is one notification row.
type Alert struct {
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Stored    bool      `json:"stored"`
}

// ParseAlerts concatenates stored_alerts and current_alerts in that order.
// There is no dedup.
func ParseAlerts(env map[string]any) []Alert {
	stored := List(env["stored_alerts"])
	current := List(env["current_alerts"])
	out := make([]Alert, 0, len(stored)+len(current))
	for _, raw := range stored {
		out = append(out, parseAlert(Object(raw), true))
	}
	for _, raw := range current {
		out = append(out, parseAlert(Object(raw), false))
	}
	return out
}

func parseAlert(obj map[string]any, stored bool) Alert {
	a := Alert{
		Type:    StringOr(obj["type"], StringOr(obj["alert_type"], "info")),
		Title:   StringOr(obj["title"], "Alert"),
		Message: String(obj["message"]),
		Stored:  stored,
	}
	a.Timestamp, _ = Timestamp(obj["timestamp"])
	return a
}

// Clock renders the alert time as HH:MM:SS, or "" when unknown.
func (a Alert) Clock() string {
	if a.Timestamp.IsZero() {
		return ""
	}
	return a.Timestamp.Format("15:04:05")
}

// Badge renders the notification badge. It is hidden at zero.
func Badge(count int) (text string, visible bool) {
	switch {
	case count <= 0:
		return "", false
	case count > 9:
		return "9+", true
	default:
		return strconv.Itoa(count), true
	}
}
