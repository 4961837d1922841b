package common

// Integer is the set of integer types accepted by the alignment helpers.
type Integer interface {
	~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64
}

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AlignUp rounds value up to the next multiple of alignment.
// Alignment must be a power of two; an alignment of zero returns value unchanged.
//
// Parameters:
//   - value: the value to align
//   - alignment: the required alignment (power of two)
//
// Returns:
//   - T: value rounded up to the next multiple of alignment
func AlignUp[T Integer](value, alignment T) T {
	if alignment == 0 {
		return value
	}
	return (value + alignment - 1) &^ (alignment - 1)
}

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo[T Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}
