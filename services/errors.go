package services

import "errors"

// Sentinel errors for the service layer. Handlers map these onto HTTP status
// codes; everything else is a 500.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrExternal           = errors.New("external system error")
	ErrInvalidCredentials = errors.New("invalid credentials")
)
