// Package similarity provides the string-matching primitives used by
// all matchers: edit-distance similarity, company-name comparison with
// legal-suffix stripping and phonetic coding, and glob matching.
//
// Every function is pure, total and deterministic. Malformed input
// yields 0 or false, never an error.
package similarity

import (
	"regexp"
	"strings"
)

// legalSuffixes are locale-specific legal-entity forms stripped before
// company names are compared.
var legalSuffixes = []string{
	"gmbh & co. kg", "gmbh & co kg", "gesellschaft mbh", "ges.m.b.h.",
	"gmbh", "mbh", "ag", "kg", "ohg", "ug", "e.k.", "e.v.", "ev",
	"inc.", "inc", "corp.", "corp", "co.", "ltd.", "ltd", "llc", "llp",
	"plc", "s.a.", "sa", "s.r.l.", "srl", "sarl", "s.a.r.l.", "sas",
	"bv", "b.v.", "nv", "n.v.", "oy", "ab", "as", "aps", "sp. z o.o.",
	"limited", "company",
}

var diacritics = map[rune]string{
	'ä': "ae", 'ö': "oe", 'ü': "ue", 'ß': "ss",
	'à': "a", 'á': "a", 'â': "a", 'ã': "a", 'å': "a", 'ā': "a",
	'è': "e", 'é': "e", 'ê': "e", 'ë': "e", 'ē': "e",
	'ì': "i", 'í': "i", 'î': "i", 'ï': "i",
	'ò': "o", 'ó': "o", 'ô': "o", 'õ': "o", 'ø': "o",
	'ù': "u", 'ú': "u", 'û': "u",
	'ç': "c", 'ñ': "n", 'ý': "y",
}

// Normalized returns the Levenshtein similarity of two strings scaled
// to [0,100]: 100 on exact match, 0 when either input is empty.
func Normalized(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	dist := levenshtein(ra, rb)
	return 100 * (1 - float64(dist)/float64(maxLen))
}

// levenshtein computes edit distance with a two-row DP table.
func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// CompanyName compares two company names in [0,100]. Legal-entity
// suffixes are stripped and diacritics folded before comparison, so
// "Müller GmbH" and "Mueller Ltd" compare on the core name alone.
func CompanyName(a, b string) float64 {
	na := NormalizeCompanyName(a)
	nb := NormalizeCompanyName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	// Phonetically identical names are near-certain matches but must
	// stay distinguishable from exact ones.
	ca, cb := phoneticCode(na), phoneticCode(nb)
	if len(ca) >= 2 && ca == cb {
		return 92
	}

	// Containment scaled by coverage: "acme" inside "acme berlin"
	// scores by how much of the longer name the shorter one covers.
	shorter, longer := na, nb
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter) >= 3 && strings.Contains(longer, shorter) {
		coverage := float64(len(shorter)) / float64(len(longer))
		return 75 + 25*coverage
	}

	return Normalized(na, nb)
}

// NormalizeCompanyName lowercases, folds diacritics, strips legal
// suffixes and collapses whitespace.
func NormalizeCompanyName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	var sb strings.Builder
	for _, r := range s {
		if repl, ok := diacritics[r]; ok {
			sb.WriteString(repl)
		} else {
			sb.WriteRune(r)
		}
	}
	s = sb.String()

	// Strip trailing legal forms repeatedly ("Acme Holding GmbH & Co. KG").
	for {
		stripped := false
		for _, suffix := range legalSuffixes {
			if s == suffix {
				s = ""
				stripped = true
			} else if strings.HasSuffix(s, " "+suffix) {
				s = strings.TrimSpace(strings.TrimSuffix(s, " "+suffix))
				stripped = true
			}
		}
		if s == "" || !stripped {
			break
		}
	}

	return strings.Join(strings.Fields(s), " ")
}

// phoneticCode produces a language-agnostic consonant-clustering code.
// Vowels and silent-ish letters are dropped after the first character,
// consonant groups collapse to a shared digit, and runs deduplicate, so
// "Meyer"/"Maier" and "Schmidt"/"Schmitt" code identically.
func phoneticCode(s string) string {
	group := func(r rune) rune {
		switch r {
		case 'b', 'p', 'f', 'v', 'w':
			return '1'
		case 'c', 'g', 'j', 'k', 'q', 's', 'x', 'z':
			return '2'
		case 'd', 't':
			return '3'
		case 'l':
			return '4'
		case 'm', 'n':
			return '5'
		case 'r':
			return '6'
		}
		return 0 // vowels, h, y and non-letters carry no code
	}

	var sb strings.Builder
	var last rune
	first := true
	for _, r := range s {
		if r < 'a' || r > 'z' {
			continue
		}
		g := group(r)
		if first {
			sb.WriteRune(r)
			first = false
			last = g
			continue
		}
		if g == 0 {
			last = 0
			continue
		}
		if g != last {
			sb.WriteRune(g)
		}
		last = g
	}
	return sb.String()
}

// GlobMatch reports whether text matches a case-insensitive glob
// pattern where * matches any run of characters. The pattern is
// anchored at both ends. Invalid patterns fail closed.
func GlobMatch(pattern, text string) bool {
	if pattern == "" {
		return false
	}

	var sb strings.Builder
	sb.WriteString("(?i)^")
	for i, part := range strings.Split(pattern, "*") {
		if i > 0 {
			sb.WriteString(".*")
		}
		sb.WriteString(regexp.QuoteMeta(part))
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return false
	}
	return re.MatchString(text)
}
