package reclaim

import "errors"

// Sentinel errors for reclaimer lifecycle operations
var (
	// ErrAlreadyStarted indicates Start() was called twice
	ErrAlreadyStarted = errors.New("reclaimer already started")

	// ErrStopped indicates the reclaimer has already been shut down
	ErrStopped = errors.New("reclaimer stopped")

	// ErrStopTimeout indicates the worker did not exit within the timeout
	ErrStopTimeout = errors.New("timeout waiting for reclaimer worker to stop")

	// ErrInvalidConfig indicates a non-positive period or interval
	ErrInvalidConfig = errors.New("invalid reclaimer configuration")
)
