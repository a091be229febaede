// Package vitals computes the Navigation Experience Score (NES), a 0-100
// composite over the core web-vital measurements.
package vitals

// Threshold is a metric-specific {good, poor} pair. Values at or below
// Good score in the 80-100 band, values between Good and Poor in the
// 60-80 band, values beyond Poor decay from 60 towards 0.
type Threshold struct {
	Good float64
	Poor float64
}

// Google-recommended thresholds per metric.
var (
	FCPThreshold = Threshold{Good: 1800, Poor: 3000}
	LCPThreshold = Threshold{Good: 2500, Poor: 4000}
	FIDThreshold = Threshold{Good: 100, Poor: 300}
	CLSThreshold = Threshold{Good: 0.1, Poor: 0.25}
)

// Importance weights, summing to 1.0 across the four metrics.
const (
	FCPWeight = 0.2
	LCPWeight = 0.3
	FIDWeight = 0.35
	CLSWeight = 0.15
)

// minRequiredWeight is the present-weight sum below which the composite
// is not reported: 1 - max(weights), i.e. no single metric's absence
// alone may invalidate the result. With the standard weights this means
// at least three of the four metrics must be present.
const minRequiredWeight = 1 - FIDWeight

// Score maps one measurement onto a 0-100 sub-score with a two-knee
// piecewise function against the metric's threshold pair.
func Score(value float64, thres Threshold) float64 {
	switch {
	case value <= thres.Good:
		pct := (thres.Good - value) / thres.Good
		return 80 + pct*20
	case value <= thres.Poor:
		pct := (thres.Poor - value) / (thres.Poor - thres.Good)
		return 60 + pct*20
	default:
		pct := (value - thres.Poor) / (thres.Poor + value)
		return 60 - 60*pct
	}
}

// ComputeNES derives the composite score from up to four measurements.
// A zero value means "not observed", not "score zero". ok is false when
// the present metrics carry too little weight to score the navigation;
// callers must treat that as missing data, not as a poor score (the wire
// layer serializes it as 0 for dashboard compatibility).
//
// Absent metrics do not drag the average down: the weighted sum is
// re-normalized by the weight actually present.
func ComputeNES(fcp, lcp, fid, cls float64) (float64, bool) {
	totalWeight := 0.0
	if fcp > 0 {
		totalWeight += FCPWeight
	}
	if lcp > 0 {
		totalWeight += LCPWeight
	}
	if fid > 0 {
		totalWeight += FIDWeight
	}
	if cls > 0 {
		totalWeight += CLSWeight
	}

	if totalWeight < minRequiredWeight {
		return 0, false
	}

	score := 0.0
	if fcp > 0 {
		score += Score(fcp, FCPThreshold) * FCPWeight
	}
	if lcp > 0 {
		score += Score(lcp, LCPThreshold) * LCPWeight
	}
	if fid > 0 {
		score += Score(fid, FIDThreshold) * FIDWeight
	}
	if cls > 0 {
		score += Score(cls, CLSThreshold) * CLSWeight
	}
	return score / totalWeight, true
}
