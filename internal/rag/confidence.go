package rag

import "math"

// Confidence is the mean similarity clamped to [0,1] and rounded to two
// decimals. The clamp applies to the mean, not to individual scores.
func Confidence(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	avg := math.Max(0, math.Min(1, sum/float64(len(scores))))
	return math.Round(avg*100) / 100
}
