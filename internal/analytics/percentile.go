// Package analytics computes the dashboard-facing aggregations: rank
// percentiles over metric samples and the traffic/error summaries.
package analytics

import (
	"math"
	"sort"
)

// PercentileByRank returns the nearest-rank percentile of a sorted,
// ascending sample: the element at index ceil(p/100*n)-1, clamped into
// [0, n-1]. No interpolation. Defined only for non-empty samples; callers
// guard zero-count groups before invoking.
func PercentileByRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	idx := int(math.Ceil(p/100*float64(n))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// SampleStats are the cheap companions to the percentile, computed in the
// same pass over a group.
type SampleStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// ComputeSampleStats summarizes one non-empty sample group.
func ComputeSampleStats(values []float64) SampleStats {
	stats := SampleStats{
		Min:   values[0],
		Max:   values[0],
		Count: len(values),
	}
	sum := 0.0
	for _, v := range values {
		if v < stats.Min {
			stats.Min = v
		}
		if v > stats.Max {
			stats.Max = v
		}
		sum += v
	}
	stats.Avg = sum / float64(len(values))
	return stats
}

// SortedCopy returns an ascending copy of values, leaving the caller's
// slice untouched.
func SortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}
