package zone

import "strings"

// RiskLevel is the normalized bucket for a zone's free-text risk label.
type RiskLevel string

const (
	RiskVeryHigh RiskLevel = "very-high"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskStandard RiskLevel = "standard"
)

// BucketRisk maps a free-text risk label to a normalized bucket using
// case-insensitive substring containment. The very-high check must run
// before the high check because "very high" contains "high".
func BucketRisk(label string) RiskLevel {
	l := strings.ToLower(label)
	switch {
	case strings.Contains(l, "very") && strings.Contains(l, "high"):
		return RiskVeryHigh
	case strings.Contains(l, "high"):
		return RiskHigh
	case strings.Contains(l, "medium") || strings.Contains(l, "med"):
		return RiskMedium
	default:
		return RiskStandard
	}
}

// RiskFromScore converts a 0-1 risk score to a coarse label, matching the
// ladder the catalog server uses for unlabeled grid zones.
func RiskFromScore(score float64) string {
	switch {
	case score >= 0.75:
		return "Very High"
	case score >= 0.5:
		return "High"
	case score >= 0.25:
		return "Medium"
	default:
		return "Low"
	}
}
