package domain

import "errors"

// Domain errors
var (
	ErrNotFound      = errors.New("resource not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInternalError = errors.New("internal error")
)

// Validation constants
const (
	MaxBorrowerNameLength = 200
	MaxPageSize           = int32(100)
	DefaultPageSize       = int32(20)
)
