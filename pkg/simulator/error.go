package simulator

import "errors"

var (
	ErrInvalidConfig = errors.New("invalid simulator config")
	ErrInvalidSpeed  = errors.New("replay speed must be positive")
)
