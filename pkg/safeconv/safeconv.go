// Package safeconv converts between integer types without silent wrap-around.
package safeconv

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a value does not fit the target type.
var ErrOutOfRange = errors.New("safeconv: value out of range")

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Convert returns v as To, or ErrOutOfRange when the value would change.
func Convert[To, From Integer](v From) (To, error) {
	out := To(v)
	if From(out) != v || (v < 0) != (out < 0) {
		return 0, fmt.Errorf("%w: %d as %T", ErrOutOfRange, v, out)
	}

	return out, nil
}

// Must is Convert that panics on overflow.
// Use only when overflow is logically impossible.
func Must[To, From Integer](v From) To {
	out, err := Convert[To](v)
	if err != nil {
		panic(err)
	}

	return out
}

// MustIntToUint32 converts int to uint32, panics on bounds violation.
func MustIntToUint32(v int) uint32 {
	return Must[uint32](v)
}

// MustIntToUint64 converts int to uint64, panics on negative values.
func MustIntToUint64(v int) uint64 {
	return Must[uint64](v)
}
