package engine

import (
	"errors"

	"trailstop/pkg/oracle"
)

var (
	// ErrUnauthorized indicates the caller lacks the required role: governance
	// for configuration, executor for execution, owner for mutation.
	ErrUnauthorized = errors.New("engine: unauthorized")

	// ErrAlreadyInitialized indicates a second initialization attempt.
	ErrAlreadyInitialized = errors.New("engine: already initialized")

	// ErrNotInitialized indicates a lifecycle call before Initialize.
	ErrNotInitialized = errors.New("engine: not initialized")

	// ErrInsufficientExecutionFee indicates the attached value at creation was
	// at or below the configured minimum.
	ErrInsufficientExecutionFee = errors.New("engine: insufficient execution fee")

	// ErrNonExistentOrder indicates the targeted order slot is absent or
	// already terminated.
	ErrNonExistentOrder = errors.New("engine: non-existent order")

	// ErrReentrant indicates a state-mutating call arrived while another was
	// still in flight.
	ErrReentrant = errors.New("engine: reentrant call")

	// ErrInvalidPriceForExecution is the oracle validator's rejection,
	// re-exported so callers only need this package's taxonomy.
	ErrInvalidPriceForExecution = oracle.ErrInvalidPriceForExecution
)
