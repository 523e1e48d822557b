package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition is returned when Record would leave a terminal state.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrClosed is returned by operations on a closed ledger.
	ErrClosed = errors.New("ledger closed")
	// ErrInvalidEntry rejects entries missing an identity or a reason.
	ErrInvalidEntry = errors.New("invalid ledger entry")
	// ErrCorrupt is reported when the log header is unreadable.
	ErrCorrupt = errors.New("corrupt ledger log")
	// ErrSchema is reported for logs written by an incompatible version.
	ErrSchema = errors.New("unsupported ledger schema")
)

// Error wraps every I/O failure of the ledger.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("ledger %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
