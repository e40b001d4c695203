package domain

import "github.com/cockroachdb/errors"

// Error taxonomy shared by the store, scheduler and notifier.
// Implementations mark their low-level errors with these sentinels
// so callers can classify with errors.Is.
var (
	// ErrStoreUnavailable aborts a scheduler run before any dispatch.
	ErrStoreUnavailable = errors.New("record store unavailable")

	// ErrTransport is isolated to the job whose send failed.
	ErrTransport = errors.New("mail transport error")

	ErrNotFound = errors.New("record not found")
)
