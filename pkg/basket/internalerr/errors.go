package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Contract errors raised by the rule engine. These indicate caller bugs
	// and are never used for "no data" outcomes.
	ErrTypeConstraint   = errors.New("type constraint violated")
	ErrInvalidMetric    = errors.New("invalid metric")
	ErrInvalidOperator  = errors.New("invalid comparison operator")
	ErrInvalidConnector = errors.New("invalid boolean connector")
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrRange            = errors.New("value out of range")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// IsContract reports whether err is one of the rule engine contract errors.
func IsContract(err error) bool {
	for _, target := range []error{
		ErrInvalidInput, ErrTypeConstraint, ErrInvalidMetric, ErrInvalidOperator,
		ErrInvalidConnector, ErrLengthMismatch, ErrRange, ErrInvalidArgument,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
