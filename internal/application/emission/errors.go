package emission

import "errors"

var (
	// ErrBelowThreshold is returned when a risk assessment's final score
	// does not qualify for ticket synthesis.
	ErrBelowThreshold = errors.New("emission: risk score below ticket threshold")
	// ErrUnsupportedRuleKind is returned when a notification rule carries
	// a kind the dispatcher has no content generator for.
	ErrUnsupportedRuleKind = errors.New("emission: unsupported notification rule kind")
)
