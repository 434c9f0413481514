package report

import (
	"regexp"
	"strconv"
	"strings"
)

var feeNumber = regexp.MustCompile(`\d+\.?\d*`)

// ParseFee converts fee text such as "€10.00m" or "€500k" to millions of euros.
// Text without a number ("free transfer", "loan transfer", "-") is zero.
func ParseFee(fee string) float64 {
	s := strings.ToLower(strings.ReplaceAll(fee, "€", ""))
	m := feeNumber.FindString(s)
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0
	}

	switch {
	case strings.Contains(s, "m"):
		return v
	case strings.Contains(s, "k"):
		return v / 1000
	default:
		return v / 1_000_000
	}
}
