package pir

import "errors"

var (
	ErrNameRequired          = errors.New("pir name must not be empty")
	ErrDescriptionRequired   = errors.New("pir description must not be empty")
	ErrInvalidPriority       = errors.New("pir priority must be one of High, Medium, Low")
	ErrInvalidConditionType  = errors.New("pir condition type must be one of ProductName, CVEID, ThreatType, CVSSScore")
	ErrConditionValueRequired = errors.New("pir condition value must not be empty")
)
