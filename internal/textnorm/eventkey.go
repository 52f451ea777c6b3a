package textnorm

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bpsMagnitudePattern = regexp.MustCompile(`(\d+)\s*bps`)
	numericValuePattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(percent|%)?`)
	retailPattern       = regexp.MustCompile(`retail`)
)

// EventKey derives a canonical event identifier from a normalized title.
// Matchers are ordered and high precision; the first hit wins. Two articles
// sharing an event key describe the same event regardless of phrasing, so
// the clustering gate treats key equality as an unconditional duplicate
// signal. Returns "" when no matcher fires.
func EventKey(normalizedTitle string) string {
	t := normalizedTitle

	// Central-bank rate change, keyed by basis-point magnitude.
	if strings.Contains(t, "policy rate") && strings.Contains(t, "bps") && strings.Contains(t, "rbi") {
		if m := bpsMagnitudePattern.FindStringSubmatch(t); m != nil {
			return fmt.Sprintf("event:rbi_policy_rate_%sbps", m[1])
		}
	}

	// CPI inflation print, keyed by the first numeric value in the title.
	if strings.Contains(t, "cpi") && strings.Contains(t, "inflation") {
		if m := numericValuePattern.FindStringSubmatch(t); m != nil {
			return fmt.Sprintf("event:cpi_infl_%s", m[1])
		}
	}

	// Named corporate actions.
	if strings.Contains(t, "hdfc bank") && strings.Contains(t, "dividend") && strings.Contains(t, "buyback") {
		return "event:hdfc_dividend_buyback"
	}
	if strings.Contains(t, "tcs") && strings.Contains(t, "deal") && strings.Contains(t, "european") && retailPattern.MatchString(t) {
		return "event:tcs_european_retail_deal"
	}

	return ""
}
