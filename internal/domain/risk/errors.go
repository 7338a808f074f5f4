package risk

import "errors"

var (
	ErrThreatIDRequired      = errors.New("risk assessment must reference a threat")
	ErrAssociationIDRequired = errors.New("risk assessment must reference a threat-asset association")
	ErrInvalidCVSSScore      = errors.New("base cvss score must be between 0.0 and 10.0")
	ErrInvalidFinalScore     = errors.New("final risk score must be between 0.0 and 10.0")
)
