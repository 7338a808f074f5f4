package feed

import "errors"

var (
	ErrNameRequired           = errors.New("feed name must not be empty")
	ErrInvalidPriority        = errors.New("feed priority must be one of P0, P1, P2, P3")
	ErrInvalidCadence         = errors.New("feed collection cadence must be one of hourly, daily, weekly, monthly")
	ErrInvalidCollectionState = errors.New("feed collection status must be one of success, failed, in_progress")
)
