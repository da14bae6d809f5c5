package fst

import (
	"bytes"

	"golang.org/x/exp/slices"
)

// PrepareKeys sorts keys lexicographically and drops duplicates, producing
// a list that satisfies Build's precondition. The input slice is left
// untouched.
func PrepareKeys(keys [][]byte) [][]byte {
	out := make([][]byte, len(keys))
	copy(out, keys)
	slices.SortFunc(out, func(a, b []byte) bool {
		return bytes.Compare(a, b) < 0
	})
	return slices.CompactFunc(out, bytes.Equal)
}
