package punctuation

import "errors"

// Sentinel errors for punctuation handling.
var (
	// ErrInvalidConfig reports an empty or malformed mark specification.
	ErrInvalidConfig = errors.New("invalid punctuation config")

	// ErrInvalidState reports an API call that does not fit the active policy
	// or a ledger that violates its own invariants.
	ErrInvalidState = errors.New("invalid punctuation state")

	// ErrPlaceholderMissing reports a placeholder the backend dropped or
	// mangled. Restore recovers from it and reports it as a diagnostic.
	ErrPlaceholderMissing = errors.New("placeholder missing from backend output")

	// ErrLedgerMismatch reports a ledger whose entry count differs from the
	// number of units handed to Restore.
	ErrLedgerMismatch = errors.New("ledger does not match units")
)
