package workflow

import "errors"

// Error taxonomy for phase failures. Phases return plain errors; marking
// an error changes how block policy treats it:
//
//   - fatal: configuration-level failure (e.g. missing credentials); the
//     job fails regardless of block policy and will keep failing until
//     configuration changes.
//   - transient: external failure (network, API); aborts a critical
//     block, is logged-and-continued in a best-effort block.
//
// Per-entity data integrity problems never become phase errors: phases
// skip the offending entity with a warning and keep going.

type fatalError struct{ err error }

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

// Fatal marks err as non-recoverable for this configuration.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal reports whether err (or anything it wraps) is fatal.
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as an external failure worth retrying next run.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is marked transient.
func IsTransient(err error) bool {
	var te *transientError
	return errors.As(err, &te)
}

// ErrPhaseSkipped is returned by a phase that decided not to run (e.g.
// quick-mode inventory sync skips the catalog import). It is recorded as
// SKIPPED, never as a failure.
var ErrPhaseSkipped = errors.New("phase skipped")
