package statecache

import (
	"github.com/agenthands/statekeys/pkg/core"
)

var (
	ErrInvalidWidth      = core.ErrInvalidWidth
	ErrArityMismatch     = core.ErrArityMismatch
	ErrUnknownHasherKind = core.ErrUnknownHasherKind
	ErrInvalidIdentifier = core.ErrInvalidIdentifier
	ErrNotFound          = core.ErrNotFound
	ErrInvalidInput      = core.ErrInvalidInput
	ErrCorrupt           = core.ErrCorrupt
	ErrTooLarge          = core.ErrTooLarge
	ErrClosed            = core.ErrClosed
)
