package model

import (
	"strings"
	"time"
)

// LearnedPattern is a glob string with an associated confidence,
// produced by a prior manual assignment and used for fast re-matching.
type LearnedPattern struct {
	Glob       string  `json:"glob"`
	Confidence float64 `json:"confidence"`
}

// Partner represents a counterparty a transaction can be attributed to.
// The same shape serves user-scoped and global/shared partners,
// distinguished by Type.
type Partner struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       *time.Time
	ID              string
	Type            PartnerType
	Name            string
	VATID           string
	Website         string
	Aliases         []string
	IBANs           []string
	EmailDomains    []string
	LearnedPatterns []LearnedPattern
}

// IsDeleted reports whether the partner has been soft-deleted.
func (p *Partner) IsDeleted() bool {
	return p.DeletedAt != nil
}

// GlobAliases returns the aliases that contain a wildcard.
func (p *Partner) GlobAliases() []string {
	var out []string
	for _, a := range p.Aliases {
		if strings.Contains(a, "*") {
			out = append(out, a)
		}
	}
	return out
}

// PlainAliases returns the aliases without wildcards, used for fuzzy
// name matching alongside the partner name.
func (p *Partner) PlainAliases() []string {
	var out []string
	for _, a := range p.Aliases {
		if !strings.Contains(a, "*") {
			out = append(out, a)
		}
	}
	return out
}
