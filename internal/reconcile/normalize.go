package reconcile

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopwords carry no identifying signal in bank narrations or counterparty names.
var stopwords = map[string]bool{
	"ltd": true, "limited": true, "llc": true, "inc": true, "co": true, "the": true,
	"and": true, "of": true, "payment": true, "pmt": true, "transfer": true, "trf": true,
	"pos": true, "ach": true, "debit": true, "credit": true, "from": true, "to": true,
}

// Normalize folds s to a comparable form: compatibility-decomposed, stripped
// of diacritics, case-folded and with every run of non-alphanumerics
// collapsed to one space.
func Normalize(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = cases.Fold().String(folded)

	var b strings.Builder
	space := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
			continue
		}
		space = true
	}
	return b.String()
}

// Tokens returns the distinct significant words of s in first-seen order.
func Tokens(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(Normalize(s)) {
		if len(w) < 2 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

// compactRef strips everything but letters and digits so "INV-1042",
// "inv 1042" and "INV1042" compare equal.
func compactRef(s string) string {
	return strings.ReplaceAll(Normalize(s), " ", "")
}
