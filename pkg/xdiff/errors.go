package xdiff

import "errors"

// Sentinel errors. Every failure returned by this package wraps one of them.
var (
	// ErrAllocation is returned when an Allocator refuses to account for a new object.
	ErrAllocation = errors.New("allocation refused")
	// ErrPatternSyntax is returned when an ignore pattern fails to compile.
	ErrPatternSyntax = errors.New("invalid pattern syntax")
	// ErrProtocolViolation is returned when the engine emits an event the aggregator cannot accept.
	ErrProtocolViolation = errors.New("engine protocol violation")
	// ErrEngineFailure is returned when the engine call itself reports failure.
	ErrEngineFailure = errors.New("engine failure")
	// ErrInvalidState is returned for transitions that are not valid in the current state.
	ErrInvalidState = errors.New("invalid aggregator state")
	// ErrOutOfRange is returned by accessors for an index outside the valid range.
	ErrOutOfRange = errors.New("index out of range")
	// ErrDestroyed is returned by accessors on an object that was already destroyed.
	ErrDestroyed = errors.New("object destroyed")
	// ErrPatternOwned is returned when a pattern is handed to a second owner.
	ErrPatternOwned = errors.New("pattern already owned")
	// ErrInvalidConfig is returned for malformed option or configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrUnsupported is returned when an engine cannot honour a requested feature.
	ErrUnsupported = errors.New("unsupported by engine")
)

// Failure kinds reported by FailureKind.
const (
	FailureNone       = ""
	FailureAllocation = "allocation"
	FailurePattern    = "pattern"
	FailureProtocol   = "protocol"
	FailureEngine     = "engine"
	FailureOther      = "other"
)

// FailureKind classifies err into one of the Failure* constants.
// The most specific cause wins: an allocation refusal surfaced through the
// engine is reported as an allocation failure.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrAllocation):
		return FailureAllocation
	case errors.Is(err, ErrProtocolViolation):
		return FailureProtocol
	case errors.Is(err, ErrPatternSyntax):
		return FailurePattern
	case errors.Is(err, ErrEngineFailure):
		return FailureEngine
	default:
		return FailureOther
	}
}
