package highlight

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Prefix lengths, in runes, compared when neither fragment contains the
// other. They catch fragments that were truncated or edited at the end.
const (
	shortPrefix = 50
	longPrefix  = 100
)

// normalizeFragment folds case and width, collapses whitespace and drops a
// trailing ellipsis.
func normalizeFragment(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	s = strings.Join(strings.Fields(s), " ")
	for {
		trimmed := strings.TrimRight(strings.TrimSuffix(s, "..."), " ")
		trimmed = strings.TrimRight(strings.TrimSuffix(trimmed, "…"), " ")
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

// sameFragment reports whether two fragments refer to the same text.
func sameFragment(a, b string) bool {
	na, nb := normalizeFragment(a), normalizeFragment(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}

	pa, pb := prefix(na, shortPrefix), prefix(nb, shortPrefix)
	if strings.Contains(nb, pa) || strings.Contains(na, pb) {
		return true
	}
	pa, pb = prefix(na, longPrefix), prefix(nb, longPrefix)
	return strings.Contains(pb, pa) || strings.Contains(pa, pb)
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
