package ledger

import "errors"

var (
	// ErrInsufficientBalance means the available balance cannot cover the
	// requested allocation.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrCapacityExceeded means the open-position limit has been reached.
	ErrCapacityExceeded = errors.New("ledger: max positions reached")

	// ErrUnknownPosition means no allocation record exists for the position.
	ErrUnknownPosition = errors.New("ledger: unknown position")

	// ErrPositionNotFound means the position does not exist or is already
	// in a terminal state.
	ErrPositionNotFound = errors.New("ledger: position not found")
)
