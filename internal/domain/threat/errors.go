package threat

import "errors"

var (
	ErrTitleRequired        = errors.New("threat title must not be empty")
	ErrFeedIDRequired       = errors.New("threat must reference an owning feed")
	ErrInvalidCVSSScore     = errors.New("cvss base score must be between 0.0 and 10.0")
	ErrInvalidSeverity      = errors.New("severity must be one of Low, Medium, High, Critical")
	ErrInvalidStatusTransition = errors.New("invalid threat status transition")
	ErrProductNameRequired  = errors.New("threat product name must not be empty")
)
