package store

import "errors"

var (
	ErrNotFound           = errors.New("record not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBrandHasCars       = errors.New("brand has cars")
	ErrConflict           = errors.New("record conflicts with an existing one")
	ErrInvalidReference   = errors.New("referenced record does not exist")
	ErrInvalidState       = errors.New("invalid state transition")
)
