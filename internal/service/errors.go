package service

import "errors"

var (
	// ErrInvalidState is returned when an operation needs a session state
	// that does not hold, such as adding a line without an active inventory.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidInput is returned for malformed operation arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress is returned when a sync cycle is already running.
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrOffline is returned when a sync is requested while offline.
	ErrOffline = errors.New("offline")
)
