package bracket

import "errors"

var (
	ErrNotFound                 = errors.New("not found")
	ErrInsufficientParticipants = errors.New("at least two approved participants are required")
	ErrRebuildRejected          = errors.New("bracket rebuild rejected")
	ErrMatchNotReady            = errors.New("match is not ready for a result")
	ErrInvalidWinner            = errors.New("winner is not part of this match")
	ErrResultConflict           = errors.New("result conflicts with the reported winner")
	ErrLockTimeout              = errors.New("timed out waiting for bracket lock")

	ErrInvalidInput        = errors.New("invalid input")
	ErrCapacityExceeded    = errors.New("approved participants exceed tournament capacity")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrAlreadyRegistered   = errors.New("participant is already registered")
	ErrRegistrationOpen    = errors.New("registration is still open")
	ErrRegistrationClosed  = errors.New("registration is closed")
	ErrForbidden           = errors.New("operation requires organizer permission")
)
