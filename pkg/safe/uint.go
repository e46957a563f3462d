// Package safe provides helpers for safe numeric conversions with overflow checks.
package safe

import (
	"fmt"
	"math"
)

// Uint32 converts signed or unsigned integers to uint32 with range validation.
func Uint32[T ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64](v T) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("value %d out of uint32 range", v)
	}
	return uint32(v), nil
}

// Int64 converts an unsigned value to int64, rejecting values above math.MaxInt64.
func Int64[T ~uint | ~uint32 | ~uint64](v T) (int64, error) {
	if uint64(v) > math.MaxInt64 {
		return 0, fmt.Errorf("value %d out of int64 range", v)
	}
	return int64(v), nil
}

// FloatToUint64 truncates a float to uint64. NaN, infinities, negatives and
// values beyond the uint64 range are rejected.
func FloatToUint64(f float64) (uint64, error) {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return 0, fmt.Errorf("value %v is not finite", f)
	case f < 0:
		return 0, fmt.Errorf("value %v out of uint64 range", f)
	case f >= math.MaxUint64:
		return 0, fmt.Errorf("value %v out of uint64 range", f)
	}
	return uint64(f), nil
}
