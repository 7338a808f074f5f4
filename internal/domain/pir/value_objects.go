package pir

// Priority is a PIR's priority tier. Only High-priority enabled PIRs
// contribute the pir_w term to the risk scorer (C7).
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// ConditionType is the closed set of PIR predicate kinds.
type ConditionType string

const (
	ConditionProductName ConditionType = "ProductName"
	ConditionCVEID       ConditionType = "CVEID"
	ConditionThreatType  ConditionType = "ThreatType"
	ConditionCVSSScore   ConditionType = "CVSSScore"
)

func (c ConditionType) Valid() bool {
	switch c {
	case ConditionProductName, ConditionCVEID, ConditionThreatType, ConditionCVSSScore:
		return true
	}
	return false
}
