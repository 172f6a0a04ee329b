package util

import (
	"fmt"
	"math"
)

const Currency = "EUR"

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func FormatDecimal(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f %s", v, Currency)
}
