package node

import "github.com/pkg/errors"

// Operation failures fall into a small closed taxonomy. Transitions wrap
// these with context; callers match with errors.Cause. Every failure aborts
// the whole operation with no partial state change.
var (
	// ErrInvalidInput occurs for a malformed amount, address or window at
	// creation or deposit.
	ErrInvalidInput = errors.New("Invalid input")

	// ErrNotAuthorized occurs when the caller lacks the required role or
	// relationship to the record.
	ErrNotAuthorized = errors.New("Not authorized")

	// ErrInvalidState occurs when the operation is illegal for the record's
	// current status. Covers "already executed", "not yet funded" and
	// "already disputed".
	ErrInvalidState = errors.New("Invalid state")

	// ErrWindowViolation occurs when the deadline has not yet been reached
	// or has already passed, depending on the operation.
	ErrWindowViolation = errors.New("Window violation")

	// ErrTransferFailed occurs when an external value movement did not
	// complete. The initiating transition must leave no trace.
	ErrTransferFailed = errors.New("Transfer failed")
)
