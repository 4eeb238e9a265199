package models

import "errors"

// Sentinel errors surfaced at the mutation boundary. Transient cache/broker
// failures during evaluation are logged and swallowed instead, so they never
// appear here.
var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateRule = errors.New("duplicate rule")
	ErrValidation    = errors.New("validation failed")
)
