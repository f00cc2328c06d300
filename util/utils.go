package util

import (
	"cmp"
	"slices"
)

/*
Utility functions.
*/

////////////////////////////////////////////////////////////////////////////////

// GroupBy groups records by the result of f.
func GroupBy[T any, K comparable](records []T, f func(T) K) map[K][]T {
	groups := make(map[K][]T)
	for _, record := range records {
		key := f(record)
		groups[key] = append(groups[key], record)
	}
	return groups
}

// Okeys returns the keys of a map in sorted order.
func Okeys[T cmp.Ordered, K any](m map[T]K) []T {
	keys := make([]T, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// When returns a if cond is true, otherwise b.
func When[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// NextPow2 returns the least power of two greater than or equal to n. Values
// below one round up to one, and values beyond the largest power of two an
// int can hold clamp to that power.
func NextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	if maxp := 1 << (intSize() - 2); n > maxp {
		return maxp
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	if intSize() == 64 {
		n |= n >> 32
	}
	return n + 1
}

func intSize() int { return 32 << (^uint(0) >> 63) }
