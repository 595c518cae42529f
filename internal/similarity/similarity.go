// Package similarity provides the pure string and geographic comparison
// primitives shared by the deduplication and mention-resolution engines.
package similarity

import (
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// legalSuffixes lists corporate suffixes stripped during name normalization.
var legalSuffixes = []string{
	" LLC", " L.L.C.", " L.L.C",
	" INC", " INC.", " INCORPORATED",
	" CORP", " CORP.", " CORPORATION",
	" LTD", " LTD.", " LIMITED",
	" PLC", " P.L.C.",
	" LP", " L.P.", " L.P",
	" LLP", " L.L.P.", " L.L.P",
	" PTY", " PTY.",
	" SA", " S.A.", " S.A",
	" AG", " A.G.",
	" NV", " N.V.",
	" CO", " CO.",
	" GROUP",
	" HOLDINGS", " HOLDING",
}

var (
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
	upperCaser   = cases.Upper(language.Und)
)

// NormalizeName standardizes a facility or company name for matching by:
//  1. Trimming whitespace
//  2. Unicode uppercasing
//  3. Removing common legal suffixes (LLC, Ltd, Pty, etc.)
//  4. Stripping punctuation (commas, periods, quotes, ampersands, dashes)
//  5. Collapsing multiple spaces into single spaces
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	name = upperCaser.String(name)

	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"(", "",
		")", "",
		"&", "AND",
		"-", " ",
		"/", " ",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)

	return name
}

// Tokens splits a name into normalized tokens.
func Tokens(name string) []string {
	n := NormalizeName(name)
	if n == "" {
		return nil
	}
	return strings.Fields(n)
}

// TokenOverlap returns the fraction of shared tokens between two names,
// relative to the smaller token set. Returns 0 when either name has no tokens.
func TokenOverlap(a, b string) float64 {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	set := make(map[string]bool, len(ta))
	for _, t := range ta {
		set[t] = true
	}

	shared := 0
	seen := make(map[string]bool, len(tb))
	for _, t := range tb {
		if set[t] && !seen[t] {
			shared++
			seen[t] = true
		}
	}

	smaller := len(ta)
	if len(tb) < smaller {
		smaller = len(tb)
	}
	return float64(shared) / float64(smaller)
}

// Ratio returns an edit-distance similarity between two normalized names,
// in [0, 1]. Identical names score 1.0.
func Ratio(a, b string) float64 {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	return levenshtein.Similarity(na, nb, nil)
}

// Contains reports whether the shorter normalized name appears as a substring
// of the longer one. Callers that need precision against bare common-word
// names pair this with coordinate agreement or an IsGenericToken check.
func Contains(a, b string) bool {
	na, nb := NormalizeName(a), NormalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	shorter, longer := na, nb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return strings.Contains(longer, shorter)
}

// genericTokens lists bare common words that carry no identity on their own.
var genericTokens = map[string]bool{
	"MINE": true, "MINES": true, "MINING": true, "MINERALS": true,
	"METALS": true, "RESOURCES": true, "SMELTER": true, "REFINERY": true,
	"PLANT": true, "PROJECT": true, "COMPANY": true, "INDUSTRIES": true,
	"GOLD": true, "COPPER": true, "NICKEL": true, "LITHIUM": true,
	"NORTH": true, "SOUTH": true, "EAST": true, "WEST": true,
	"NEW": true, "THE": true,
}

// IsGenericToken reports whether the name normalizes to a single token that
// is a bare common industry word.
func IsGenericToken(name string) bool {
	toks := Tokens(name)
	return len(toks) == 1 && genericTokens[toks[0]]
}

// FirstToken returns the first normalized token of a name, or "" if none.
func FirstToken(name string) string {
	toks := Tokens(name)
	if len(toks) == 0 {
		return ""
	}
	return toks[0]
}
