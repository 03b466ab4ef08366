package rentals

import "sort"

// median returns the median of prices, averaging the two middle values for
// even-length input. Returns false for empty input.
func median(prices []float64) (float64, bool) {
	if len(prices) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(prices))
	copy(sorted, prices)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 != 0 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}
