package common

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	maxDisplayPlaces = 18
	// inputs with more integer digits are not rendered, the plain form would be unbounded
	maxIntegerDigits = 80
)

var (
	one       = decimal.New(1, 0)
	tenth     = decimal.New(1, -1)
	hundredth = decimal.New(1, -2)
	thousandh = decimal.New(1, -3)
)

// FormatDisplay renders value as a plain decimal string for display.
// Empty input and a bare "-" render as "0"; input that does not parse, or whose
// magnitude exceeds maxIntegerDigits integer digits, is returned unchanged.
func FormatDisplay(value string) string {
	s := strings.TrimSpace(value)
	if s == "" || s == "-" {
		return "0"
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil || integerDigits(d) > maxIntegerDigits {
		return value
	}
	return formatDecimal(d)
}

func FormatDisplayFloat(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}
	d := decimal.NewFromFloat(value)
	if integerDigits(d) > maxIntegerDigits {
		return strconv.FormatFloat(value, 'g', -1, 64)
	}
	return formatDecimal(d)
}

// integerDigits is the position of the leading digit relative to the decimal point:
// 123.4 -> 3, 0.05 -> -1.
func integerDigits(d decimal.Decimal) int64 {
	coefficient := strings.TrimPrefix(d.Coefficient().String(), "-")
	return int64(d.Exponent()) + int64(len(coefficient))
}

func formatDecimal(d decimal.Decimal) string {
	// below 10^-19 everything rounds to zero at maxDisplayPlaces, skip the rescale
	if d.IsZero() || integerDigits(d) < -maxDisplayPlaces {
		return "0"
	}
	return d.Round(displayPlaces(d.Abs())).String()
}

// displayPlaces keeps the first significant digit of magnitudes below 0.001,
// i.e. -floor(log10 m), capped at maxDisplayPlaces.
func displayPlaces(m decimal.Decimal) int32 {
	switch {
	case m.Cmp(one) >= 0:
		return 0
	case m.Cmp(tenth) >= 0:
		return 1
	case m.Cmp(hundredth) >= 0:
		return 2
	case m.Cmp(thousandh) >= 0:
		return 3
	}
	for places := int32(4); places < maxDisplayPlaces; places++ {
		if m.Cmp(decimal.New(1, -places)) >= 0 {
			return places
		}
	}
	return maxDisplayPlaces
}
