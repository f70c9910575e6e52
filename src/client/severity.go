package client

// Severity 风险等级的展示分级
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SeverityOf 80及以上为高，40到79为中，其余为低
func SeverityOf(riskLevel int) Severity {
	switch {
	case riskLevel >= 80:
		return SeverityHigh
	case riskLevel >= 40:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
