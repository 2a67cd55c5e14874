package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalized(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "exact match", a: "acme", b: "acme", want: 100},
		{name: "empty left", a: "", b: "acme", want: 0},
		{name: "empty right", a: "acme", b: "", want: 0},
		{name: "both empty", a: "", b: "", want: 0},
		{name: "one edit in four runes", a: "acme", b: "acmo", want: 75},
		{name: "completely different", a: "aaaa", b: "zzzz", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Normalized(tt.a, tt.b), 0.01)
		})
	}
}

func TestNormalizedBounds(t *testing.T) {
	inputs := []string{"", "a", "Acme GmbH", "ACME INVOICE 123", "ümlaut ß", "    "}
	for _, a := range inputs {
		for _, b := range inputs {
			got := Normalized(a, b)
			assert.GreaterOrEqual(t, got, 0.0, "Normalized(%q,%q)", a, b)
			assert.LessOrEqual(t, got, 100.0, "Normalized(%q,%q)", a, b)
		}
	}
}

func TestCompanyName(t *testing.T) {
	tests := []struct {
		name    string
		a       string
		b       string
		want    float64
		atLeast bool
	}{
		{name: "identical after suffix strip", a: "Acme GmbH", b: "Acme Inc", want: 100},
		{name: "case and diacritics folded", a: "Müller AG", b: "mueller gmbh", want: 100},
		{name: "phonetic equivalence", a: "Meyer GmbH", b: "Maier Ltd", want: 92},
		{name: "containment scales with coverage", a: "Acme", b: "Acme Berlin", want: 75, atLeast: true},
		{name: "unrelated names score low", a: "Acme GmbH", b: "Contoso Ltd", want: 40},
		{name: "empty input", a: "", b: "Acme", want: 0},
		{name: "suffix-only input", a: "GmbH", b: "GmbH", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompanyName(tt.a, tt.b)
			if tt.atLeast {
				assert.GreaterOrEqual(t, got, tt.want)
				assert.Less(t, got, 100.0)
			} else if tt.want >= 75 {
				assert.InDelta(t, tt.want, got, 0.01)
			} else {
				assert.LessOrEqual(t, got, tt.want)
			}
		})
	}
}

func TestCompanyNameContainmentCoverage(t *testing.T) {
	// More of the longer name covered means a higher score.
	narrow := CompanyName("Acme", "Acme International Holding")
	wide := CompanyName("Acme", "Acme Co")
	assert.Greater(t, wide, narrow)
}

func TestNormalizeCompanyName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "Acme GmbH", want: "acme"},
		{in: "Acme Holding GmbH & Co. KG", want: "acme holding"},
		{in: "  Acme   Corp. ", want: "acme"},
		{in: "Société Générale S.A.", want: "societe generale"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCompanyName(tt.in), "input %q", tt.in)
	}
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		text    string
		want    bool
	}{
		{name: "prefix wildcard", pattern: "ACME*", text: "acme invoice 123", want: true},
		{name: "no match", pattern: "ACME*", text: "contoso", want: false},
		{name: "infix wildcard", pattern: "amazon*marketplace", text: "AMAZON EU MARKETPLACE", want: true},
		{name: "anchored at both ends", pattern: "acme", text: "acme invoice", want: false},
		{name: "regex metachars are literal", pattern: "a.c*", text: "abc payment", want: false},
		{name: "metachar literal match", pattern: "a.c*", text: "a.c payment", want: true},
		{name: "empty pattern never matches", pattern: "", text: "anything", want: false},
		{name: "lone wildcard matches all", pattern: "*", text: "anything", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GlobMatch(tt.pattern, tt.text))
		})
	}
}

func TestGlobMatchMalformedNeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		GlobMatch("((*[", "text")
		GlobMatch("\\", "text")
		GlobMatch("**((", "((")
	})
}
