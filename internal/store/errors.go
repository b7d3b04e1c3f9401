package store

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")
	// ErrUnknownCat is returned when a device write names a cat that is not stored.
	ErrUnknownCat = errors.New("unknown cat")
)
