package pool

import "errors"

var (
	// ErrLocked reports a mutating call while another one is in progress, or
	// before the pool has been initialized.
	ErrLocked = errors.New("pool is locked")
	// ErrAlreadyInitialized reports a second Initialize call.
	ErrAlreadyInitialized = errors.New("pool already initialized")

	ErrZeroAmount           = errors.New("liquidity amount must be greater than zero")
	ErrInvalidTickRange     = errors.New("tickLower must be below tickUpper")
	ErrTickLowerOutOfBounds = errors.New("tickLower below minimum tick")
	ErrTickUpperOutOfBounds = errors.New("tickUpper above maximum tick")

	ErrPositionNotFound = errors.New("position not found")
	// ErrSnapshotMismatch reports a Restore with a snapshot taken from a pool
	// with a different token pair, fee or tick spacing.
	ErrSnapshotMismatch = errors.New("snapshot does not match pool configuration")
)
