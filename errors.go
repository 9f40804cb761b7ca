package snaplisp

import "errors"

// Common errors used by the configuration layer
var (
	// ErrConfigValidation is returned when configuration validation fails
	ErrConfigValidation = errors.New("configuration validation failed")
	// ErrInvalidExcludePattern indicates an exclude entry is not a valid glob.
	ErrInvalidExcludePattern = errors.New("invalid exclude pattern")
)
