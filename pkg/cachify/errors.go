package cachify

import (
	"errors"
	"fmt"
)

// Kind classifies a cachify error. Kinds are not distinct Go types; a
// single Error struct carries one of these.
type Kind string

const (
	// KindHardTimeout means a GetOrSet factory was canceled by its hard
	// timeout and no stale fallback was available.
	KindHardTimeout Kind = "HardTimeout"

	// KindFactoryFailure means the factory returned an error and no stale
	// fallback was available.
	KindFactoryFailure Kind = "FactoryFailure"

	// KindSerializationFailure means an entry's metadata could not be
	// encoded or decoded. Logged and swallowed by default.
	KindSerializationFailure Kind = "SerializationFailure"

	// KindBackplaneDeliveryFailure means a backplane publish failed to
	// reach the transport. Logged and swallowed by default.
	KindBackplaneDeliveryFailure Kind = "BackplaneDeliveryFailure"

	// KindWireVersionMismatch means a received backplane message carried
	// an unsupported envelope version. The message is dropped silently.
	KindWireVersionMismatch Kind = "WireVersionMismatch"

	// KindBodyTooLarge means a request body exceeded the configured hash
	// size cap. Caching is disabled for that request only.
	KindBodyTooLarge Kind = "BodyTooLarge"

	// KindCanonicalizationFailure means a similarity-mode payload could
	// not be canonicalized. Similarity is disabled for that request only.
	KindCanonicalizationFailure Kind = "CanonicalizationFailure"
)

// StaleReason explains why a value returned by Get or GetOrSet is stale.
// StaleUsed is never a thrown error; it surfaces only as an annotation on
// the returned Result and in telemetry.
type StaleReason string

const (
	StaleReasonNone           StaleReason = ""
	StaleReasonExpired        StaleReason = "Expired"
	StaleReasonL2Failure      StaleReason = "L2Failure"
	StaleReasonFactoryFailure StaleReason = "FactoryFailure"
	StaleReasonSoftTimeout    StaleReason = "SoftTimeout"
	StaleReasonHardTimeout    StaleReason = "HardTimeout"
)

// Error is the error type surfaced by orchestrator operations that fail.
// KeyMissing is deliberately not a Kind here: it is represented by a nil
// Result and a nil error, a normal outcome rather than a failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cachify: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("cachify: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ErrHardTimeout) style checks by Kind.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// Sentinel errors for errors.Is comparisons against a specific Kind.
var (
	ErrHardTimeout    = &Error{Kind: KindHardTimeout}
	ErrFactoryFailure = &Error{Kind: KindFactoryFailure}
)

func newHardTimeoutError(cause error) error {
	return &Error{Kind: KindHardTimeout, Message: "factory canceled by hard timeout", Err: cause}
}

func newFactoryFailureError(cause error) error {
	return &Error{Kind: KindFactoryFailure, Message: "factory returned an error", Err: cause}
}

// ErrGetOrSetNilFactory is returned when GetOrSet is called with a nil
// factory function.
var ErrGetOrSetNilFactory = errors.New("cachify: factory must not be nil")
