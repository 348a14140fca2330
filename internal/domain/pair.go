package domain

import "regexp"

type Pair string

// PairUSDRUB is the only pair the pricing core converts through.
const PairUSDRUB Pair = "USD/RUB"

var SupportedCurrency = map[string]bool{
	"USD": true,
	"EUR": true,
	"RUB": true,
}

var pairRe = regexp.MustCompile(`^[A-Z]{3}/[A-Z]{3}$`)

func ValidatePair(p string) bool {
	if !pairRe.MatchString(p) {
		return false
	}
	base, quote, _ := SplitPair(p)
	return SupportedCurrency[base] && SupportedCurrency[quote] && base != quote
}

// SplitPair returns base and quote currency codes of "BASE/QUOTE".
func SplitPair(p string) (string, string, bool) {
	if !pairRe.MatchString(p) {
		return "", "", false
	}
	return p[:3], p[4:], true
}
