package indicators

import (
	"math"

	"github.com/shopspring/decimal"
)

// ADX computes Wilder's average directional index over window periods. The first
// valid value sits at index 2*window-1: window bars seed the smoothed true range and
// directional movement, then window DX values seed the average.
func ADX(high, low, close []decimal.Decimal, window int) Series {
	n := len(close)
	out := make(Series, n)
	if window <= 0 || len(high) != n || len(low) != n || n < 2*window {
		return out
	}

	h := toFloats(high)
	l := toFloats(low)
	c := toFloats(close)

	tr := make([]float64, n)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = math.Max(h[i], c[i-1]) - math.Min(l[i], c[i-1])

		up := h[i] - h[i-1]
		down := l[i-1] - l[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	w := float64(window)
	var smTR, smPlus, smMinus float64
	for i := 1; i <= window; i++ {
		smTR += tr[i]
		smPlus += plusDM[i]
		smMinus += minusDM[i]
	}

	dx := make([]float64, n)
	dx[window] = directionalIndex(smTR, smPlus, smMinus)
	for i := window + 1; i < n; i++ {
		smTR = smTR - smTR/w + tr[i]
		smPlus = smPlus - smPlus/w + plusDM[i]
		smMinus = smMinus - smMinus/w + minusDM[i]
		dx[i] = directionalIndex(smTR, smPlus, smMinus)
	}

	first := 2*window - 1
	var adx float64
	for i := window; i <= first; i++ {
		adx += dx[i]
	}
	adx /= w
	out[first] = valid(decimal.NewFromFloat(adx))

	for i := first + 1; i < n; i++ {
		adx = (adx*(w-1) + dx[i]) / w
		out[i] = valid(decimal.NewFromFloat(adx))
	}
	return out
}

// directionalIndex is 100*|+DI - -DI| / (+DI + -DI). A flat market with no true
// range or no directional movement has no trend strength.
func directionalIndex(smTR, smPlus, smMinus float64) float64 {
	if smTR <= 0 {
		return 0
	}
	plusDI := 100 * smPlus / smTR
	minusDI := 100 * smMinus / smTR
	sum := plusDI + minusDI
	if sum <= 0 {
		return 0
	}
	return 100 * math.Abs(plusDI-minusDI) / sum
}

func toFloats(values []decimal.Decimal) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.InexactFloat64()
	}
	return out
}
