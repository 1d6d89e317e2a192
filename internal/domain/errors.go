package domain

import "errors"

// ErrNotFound is returned when a requested record does not exist, e.g. the
// remote trip store has no snapshot yet.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing destination, empty activity).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrRemoteUnconfigured means no remote trip store is configured.
// It is an expected path, not a failure: callers skip the remote step.
var ErrRemoteUnconfigured = errors.New("remote store not configured")

// ErrRemoteRead wraps transport or decoding failures while reading the
// remote trip store. Callers log it and fall back to local state.
var ErrRemoteRead = errors.New("remote read failed")

// ErrRemoteWrite wraps failures while appending a snapshot to the remote
// trip store. Local state is already committed when this is returned.
var ErrRemoteWrite = errors.New("remote write failed")
