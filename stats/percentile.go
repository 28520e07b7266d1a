// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package stats

import (
	"math"
	"sort"
)

// percentile computes the p-th percentile of an unsorted slice of
// scores. It copies the input, stably sorts it ascending (NaN treated
// as equal to everything, matching Rust's partial_cmp(...).unwrap_or
// (Equal)), and returns the element at index floor(n*p), clamped to the
// last element when that index would run off the end — including the
// p=1.0 case. This is intentionally not a linear-interpolation
// percentile. Returns false if scores is empty.
func percentile(scores []float64, p float64) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if math.IsNaN(a) || math.IsNaN(b) {
			return false
		}
		return a < b
	})

	idx := int(float64(len(sorted)) * p)
	if idx >= len(sorted) {
		return sorted[len(sorted)-1], true
	}
	return sorted[idx], true
}

func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}
