package threads

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable classification calling tools use to
// format a consistent message and pick a retry policy.
type ErrorKind string

const (
	// KindThreadNotFound: continuation ID resolves to nothing (absent or
	// expired). Caller error, no retry; callers may fall back to a new thread.
	KindThreadNotFound ErrorKind = "thread_not_found"

	// KindInvalidSequence: turn sequence number is non-positive or skips a
	// step. Caller error, no retry.
	KindInvalidSequence ErrorKind = "invalid_sequence"

	// KindStoreUnavailable: backing store I/O failed or the deadline lapsed.
	// Retried by the caller with backoff; never retried internally.
	KindStoreUnavailable ErrorKind = "store_unavailable"

	// KindContentTooLarge: unconditional reference total exceeds the protocol
	// ceiling. Fatal to the request; the user must reduce scope.
	KindContentTooLarge ErrorKind = "content_too_large"

	// KindReferenceUnreadable: a single reference could not be loaded for
	// cost estimation. Treated as a skip with a warning, not a hard failure.
	KindReferenceUnreadable ErrorKind = "reference_unreadable"
)

// ThreadError carries the failing thread ID (when known) alongside the kind.
type ThreadError struct {
	Kind     ErrorKind
	ThreadID string
	Err      error
}

func (e *ThreadError) Error() string {
	if e.ThreadID == "" {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Kind, e.Err)
		}
		return string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s (thread %s): %v", e.Kind, e.ThreadID, e.Err)
	}
	return fmt.Sprintf("%s (thread %s)", e.Kind, e.ThreadID)
}

func (e *ThreadError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two ThreadErrors by kind regardless of thread ID.
func (e *ThreadError) Is(target error) bool {
	var te *ThreadError
	if errors.As(target, &te) {
		return e.Kind == te.Kind
	}
	return false
}

// Sentinels for errors.Is checks against the taxonomy.
var (
	ErrThreadNotFound      = &ThreadError{Kind: KindThreadNotFound}
	ErrInvalidSequence     = &ThreadError{Kind: KindInvalidSequence}
	ErrStoreUnavailable    = &ThreadError{Kind: KindStoreUnavailable}
	ErrContentTooLarge     = &ThreadError{Kind: KindContentTooLarge}
	ErrReferenceUnreadable = &ThreadError{Kind: KindReferenceUnreadable}
)

func notFoundErr(threadID string) error {
	return &ThreadError{Kind: KindThreadNotFound, ThreadID: threadID}
}

func storeErr(threadID string, err error) error {
	return &ThreadError{Kind: KindStoreUnavailable, ThreadID: threadID, Err: err}
}
