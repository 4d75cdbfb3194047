// Package safe converts between integer types with range checks.
package safe

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is wrapped by every conversion failure.
var ErrOutOfRange = errors.New("value out of range")

// Integer is any signed or unsigned integer type, named types included.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// magnitude splits v into its sign and absolute value. The absolute value
// of math.MinInt64 fits in a uint64.
func magnitude[T Integer](v T) (negative bool, abs uint64) {
	if v < 0 {
		return true, uint64(-(int64(v) + 1)) + 1
	}
	return false, uint64(v)
}

func outOfRange[T Integer](v T, target string) error {
	return fmt.Errorf("%w: %d does not fit %s", ErrOutOfRange, v, target)
}

// Int converts v to int.
func Int[T Integer](v T) (int, error) {
	negative, abs := magnitude(v)
	if negative && abs > uint64(math.MaxInt)+1 || !negative && abs > math.MaxInt {
		return 0, outOfRange(v, "int")
	}
	return int(v), nil
}

// Uint32 converts v to uint32.
func Uint32[T Integer](v T) (uint32, error) {
	negative, abs := magnitude(v)
	if negative || abs > math.MaxUint32 {
		return 0, outOfRange(v, "uint32")
	}
	return uint32(abs), nil
}
