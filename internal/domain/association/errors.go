package association

import "errors"

var (
	ErrThreatIDRequired   = errors.New("association must reference a threat")
	ErrAssetIDRequired    = errors.New("association must reference an asset")
	ErrInvalidConfidence  = errors.New("association confidence must be between 0.0 and 1.0")
)
