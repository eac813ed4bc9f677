// Package score implements the scoring pipeline: technical pattern
// analysis, fundamental scoring, the composite blend and candidate
// selection.
package score

// Normalize maps value onto [0,1] with a clamped piecewise-linear curve:
// low maps to 0.0, mid to 0.5, high to 1.0. The function is total: a fully
// collapsed range maps every value to the midpoint, a degenerate segment
// (zero width) returns the midpoint instead of dividing by zero, and
// values outside [low, high] otherwise clamp to the boundary.
func Normalize(value, low, mid, high float64) float64 {
	switch {
	case high <= low:
		return 0.5
	case value <= low:
		return 0.0
	case value >= high:
		return 1.0
	case value == mid:
		return 0.5
	case value < mid:
		span := mid - low
		if span <= 0 {
			return 0.5
		}
		return 0.5 * (value - low) / span
	default:
		span := high - mid
		if span <= 0 {
			return 0.5
		}
		return 0.5 + 0.5*(value-mid)/span
	}
}

// Bounds for normalizing EPS surprise and revenue growth: -20% maps to 0,
// flat to 0.5, +20% to 1.
const (
	SurpriseLow  = -0.20
	SurpriseMid  = 0.0
	SurpriseHigh = 0.20
)

// NormalizeSurprise normalizes a mean EPS surprise expressed as a fraction
// (e.g. +0.073 for +7.3%).
func NormalizeSurprise(surprise float64) float64 {
	return Normalize(surprise, SurpriseLow, SurpriseMid, SurpriseHigh)
}

// NormalizeRevenueGrowth normalizes a quarter-over-quarter revenue growth
// fraction over the same band as surprises.
func NormalizeRevenueGrowth(growth float64) float64 {
	return Normalize(growth, SurpriseLow, SurpriseMid, SurpriseHigh)
}
