package notification

import "errors"

var (
	ErrInvalidRuleKind     = errors.New("notification rule kind must be one of CriticalThreat, HighRiskDailyDigest, WeeklyReport")
	ErrNoRecipients        = errors.New("notification rule must have at least one recipient")
	ErrInvalidScoreThreshold = errors.New("notification rule score threshold must be between 0.0 and 10.0")
	ErrRuleIDRequired      = errors.New("notification must reference a rule")
)
