package core

import (
	"errors"
)

var (
	ErrInvalidWidth      = errors.New("statekeys: invalid hash width")
	ErrArityMismatch     = errors.New("statekeys: arity mismatch")
	ErrUnknownHasherKind = errors.New("statekeys: unknown hasher kind")
	ErrInvalidIdentifier = errors.New("statekeys: invalid identifier")

	ErrNotFound     = errors.New("statekeys: not found")
	ErrInvalidInput = errors.New("statekeys: invalid input")
	ErrCorrupt      = errors.New("statekeys: corrupt data")
	ErrTooLarge     = errors.New("statekeys: too large")
	ErrClosed       = errors.New("statekeys: cache closed")
)
