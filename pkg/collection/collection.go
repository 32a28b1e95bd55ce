// Package collection holds the generic slice helpers the in-memory
// repositories are built from.
//
//	ids := collection.Map(orders, func(o models.Order) primitive.ObjectID { return o.ID })
//	mine := collection.Filter(orders, func(o models.Order) bool { return o.Buyer == buyer })
package collection

import "sort"

// Map transforms each element of s using fn.
func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

// Filter returns the elements of s for which fn returns true, in order.
func Filter[T any](s []T, fn func(T) bool) []T {
	var out []T
	for _, v := range s {
		if fn(v) {
			out = append(out, v)
		}
	}
	return out
}

// First returns the first element matching fn, or (zero, false).
func First[T any](s []T, fn func(T) bool) (T, bool) {
	for _, v := range s {
		if fn(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Unique drops repeated values, keeping first occurrences in order.
func Unique[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	var out []T
	for _, v := range s {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// SortBy sorts s in place, keeping the original order of equal elements,
// and returns it.
func SortBy[T any](s []T, less func(a, b T) bool) []T {
	sort.SliceStable(s, func(i, j int) bool { return less(s[i], s[j]) })
	return s
}

// Take returns at most the first n elements. n <= 0 means no limit.
func Take[T any](s []T, n int) []T {
	if n <= 0 || n >= len(s) {
		return s
	}
	return s[:n]
}

// KeyBy indexes s by fn. On a key collision the last element wins.
func KeyBy[T any, K comparable](s []T, fn func(T) K) map[K]T {
	out := make(map[K]T, len(s))
	for _, v := range s {
		out[fn(v)] = v
	}
	return out
}

// Paginate returns one 1-indexed page of size elements. A page past the end
// is empty.
func Paginate[T any](s []T, page, size int) []T {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		return nil
	}
	start := (page - 1) * size
	if start >= len(s) {
		return nil
	}
	return s[start:min(start+size, len(s))]
}
