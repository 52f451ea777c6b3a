package textnorm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// rewrite is one ordered synonym-folding step. Order matters: regulator and
// rate-term folding must run before the verb and unit rewrites so the
// rate-context check below sees canonical tokens.
type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

var synonymRewrites = []rewrite{
	// Regulator name variants.
	{regexp.MustCompile(`\b(reserve bank of india|reserve bank|central bank)\b`), "rbi"},
	// Rate terminology.
	{regexp.MustCompile(`\b(repo rate|policy rate|interest rates|interest rate)\b`), "policy rate"},
	// Rate-change verbs.
	{regexp.MustCompile(`\b(hike|hikes|hiked|raise|raises|raised|increase|increases|increased)\b`), "raise"},
	// Business-action synonyms.
	{regexp.MustCompile(`\b(share repurchase|repurchase)\b`), "buyback"},
	{regexp.MustCompile(`\b(bags|bagged|wins|won)\b`), "win"},
	{regexp.MustCompile(`\b(okays|approves|approved)\b`), "approve"},
	{regexp.MustCompile(`\b(mega deal|mega)\b`), "deal"},
	// Basis-point phrasing.
	{regexp.MustCompile(`\bbasis points\b`), "bps"},
	{regexp.MustCompile(`\b(\d+)\s*bps\b`), "$1 bps"},
	{regexp.MustCompile(`\b(\d+)bps\b`), "$1 bps"},
}

var (
	rateContextPattern = regexp.MustCompile(`\b(policy rate|repo|interest)\b`)
	percentPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%`)
	barePercentPattern = regexp.MustCompile(`\s*%`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Normalize canonicalizes article or query text: lowercase, ordered synonym
// folding, bps/percent normalization, whitespace collapse. Idempotent:
// Normalize(Normalize(t)) == Normalize(t) for all t, which downstream event
// keying and similarity gating rely on.
func Normalize(text string) string {
	t := strings.ToLower(text)

	for _, r := range synonymRewrites {
		t = r.pattern.ReplaceAllString(t, r.replacement)
	}

	// "X%" means basis points only in a rate context; elsewhere a percent
	// sign is just spelled out.
	if rateContextPattern.MatchString(t) {
		t = percentPattern.ReplaceAllStringFunc(t, percentToBps)
	} else {
		t = barePercentPattern.ReplaceAllString(t, " percent")
	}

	return strings.TrimSpace(whitespacePattern.ReplaceAllString(t, " "))
}

func percentToBps(match string) string {
	groups := percentPattern.FindStringSubmatch(match)
	if len(groups) < 2 {
		return match
	}
	value, err := strconv.ParseFloat(groups[1], 64)
	if err != nil {
		return match
	}
	return fmt.Sprintf("%d bps", int(math.Round(value*100)))
}

// TokenSet splits normalized text into its whitespace-delimited token set.
func TokenSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
