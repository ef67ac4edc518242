package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrValidation is returned when required input is missing or malformed.
	// The operation is rejected before any mutation.
	ErrValidation = goerr.New("validation failed")

	// ErrPersistence is returned when the backing store cannot be written or
	// read. The in-memory state is kept.
	ErrPersistence = goerr.New("persistence failed")

	// ErrSnapshotUnavailable means a world snapshot could not be captured,
	// usually because too few features are tracked.
	ErrSnapshotUnavailable = goerr.New("world snapshot unavailable")

	// ErrHitTestMiss means no surface is under the tapped point.
	ErrHitTestMiss = goerr.New("hit test missed")

	// ErrEntityResolutionMiss means a tapped entity is not owned by any memory.
	ErrEntityResolutionMiss = goerr.New("entity not mapped to a memory")

	ErrMemoryNotFound = goerr.New("memory not found")
	ErrInvalidState   = goerr.New("action not allowed in current state")
)
