package notification

// RuleKind is the closed set of notification subscription kinds.
type RuleKind string

const (
	RuleCriticalThreat     RuleKind = "CriticalThreat"
	RuleHighRiskDailyDigest RuleKind = "HighRiskDailyDigest"
	RuleWeeklyReport        RuleKind = "WeeklyReport"
)

func (k RuleKind) Valid() bool {
	switch k {
	case RuleCriticalThreat, RuleHighRiskDailyDigest, RuleWeeklyReport:
		return true
	}
	return false
}

// DeliveryStatus is the outcome of one notification send attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "Sent"
	DeliveryFailed DeliveryStatus = "Failed"
)
