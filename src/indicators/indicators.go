// Package indicators derives the channel and trend-strength series used by the
// daily decision loop. Series are aligned with their input; positions that lack
// enough history are invalid NullDecimals.
package indicators

import (
	"github.com/shopspring/decimal"
)

// Series is an indicator aligned index-for-index with the candles it came from.
type Series []decimal.NullDecimal

// Last returns the most recent value.
func (s Series) Last() decimal.NullDecimal {
	if len(s) == 0 {
		return decimal.NullDecimal{}
	}
	return s[len(s)-1]
}

func valid(v decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: v, Valid: true}
}

// RollingMax is the highest value of the trailing window ending at each index.
func RollingMax(values []decimal.Decimal, window int) Series {
	return rolling(values, window, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) })
}

// RollingMin is the lowest value of the trailing window ending at each index.
func RollingMin(values []decimal.Decimal, window int) Series {
	return rolling(values, window, func(a, b decimal.Decimal) bool { return a.LessThan(b) })
}

// rolling keeps a monotonic deque of indices so each window is resolved in O(1)
// amortized.
func rolling(values []decimal.Decimal, window int, better func(a, b decimal.Decimal) bool) Series {
	out := make(Series, len(values))
	if window <= 0 {
		return out
	}

	deque := make([]int, 0, window)
	for i, v := range values {
		for len(deque) > 0 && deque[0] <= i-window {
			deque = deque[1:]
		}
		for len(deque) > 0 && !better(values[deque[len(deque)-1]], v) {
			deque = deque[:len(deque)-1]
		}
		deque = append(deque, i)

		if i >= window-1 {
			out[i] = valid(values[deque[0]])
		}
	}
	return out
}

// Shift lags s by n periods, so the value at index i describes data only up to i-n.
func Shift(s Series, n int) Series {
	out := make(Series, len(s))
	if n < 0 {
		return out
	}
	for i := n; i < len(s); i++ {
		out[i] = s[i-n]
	}
	return out
}
