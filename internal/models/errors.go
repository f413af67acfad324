package models

import "errors"

// Sentinel errors returned by the repositories. Callers branch with
// errors.Is; anything else is an infrastructure failure propagated as-is.
var (
	ErrEventNotFound  = errors.New("event not found")
	ErrInvalidEventID = errors.New("invalid event id")
	ErrUnknownStatus  = errors.New("unknown status")
)
