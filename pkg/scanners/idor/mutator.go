// pkg/scanners/idor/mutator.go
package idor

import (
	"fmt"
	"math"
	"slices"
	"strconv"
)

// DefaultMutationRadius is how many neighbours on each side of a numeric
// suffix are generated.
const DefaultMutationRadius = 2

// BoundaryValues are tried against every parameter regardless of its seed
var BoundaryValues = []string{
	"0",     // system / root objects
	"1",     // first user
	"admin", // named privileged account
	"-1",    // out of range
	"",      // empty
	"null",  // literal null
}

// MutateParam expands a seed id into candidate attack values.
// The result always contains the seed, is sorted and has no duplicates.
func MutateParam(seed string) []string {
	mutations := []string{seed}

	if adjacent, ok := GenerateAdjacentIDs(seed, DefaultMutationRadius); ok {
		mutations = append(mutations, adjacent...)
	}

	mutations = append(mutations, BoundaryValues...)

	slices.Sort(mutations)
	return slices.Compact(mutations)
}

// GenerateAdjacentIDs varies the trailing digit run of seed by up to radius
// in each direction: "user_123" -> user_121, user_122, user_124, user_125.
// Negative values are skipped and zero padding is kept when the original
// suffix had it ("007" -> "005" ... "009"). ok is false when seed has no
// usable numeric suffix.
func GenerateAdjacentIDs(seed string, radius int) (adjacent []string, ok bool) {
	base, digits, found := splitNumericSuffix(seed)
	if !found {
		return nil, false
	}

	number, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, false
	}

	padded := len(digits) > 1 && digits[0] == '0'
	format := "%s%d"
	if padded {
		format = fmt.Sprintf("%%s%%0%dd", len(digits))
	}

	for offset := -radius; offset <= radius; offset++ {
		if offset == 0 {
			continue
		}
		if offset > 0 && number > math.MaxInt64-int64(offset) {
			continue
		}
		candidate := number + int64(offset)
		if candidate < 0 {
			continue
		}
		adjacent = append(adjacent, fmt.Sprintf(format, base, candidate))
	}

	return adjacent, len(adjacent) > 0
}

// splitNumericSuffix returns the prefix and the maximal trailing run of ASCII digits
func splitNumericSuffix(s string) (base, digits string, ok bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, "", false
	}
	return s[:i], s[i:], true
}
