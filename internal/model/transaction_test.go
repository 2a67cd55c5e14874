package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkOriginPrecedence(t *testing.T) {
	assert.Greater(t, OriginManual.Precedence(), OriginAuto.Precedence())
	assert.Greater(t, OriginAuto.Precedence(), OriginSuggestion.Precedence())
	assert.Greater(t, OriginSuggestion.Precedence(), LinkOrigin("").Precedence())
}

func TestCanSetPartner(t *testing.T) {
	tests := []struct {
		name    string
		current LinkOrigin
		linked  bool
		writer  LinkOrigin
		want    bool
	}{
		{name: "unlinked accepts suggestion", writer: OriginSuggestion, want: true},
		{name: "unlinked accepts auto", writer: OriginAuto, want: true},
		{name: "auto may not overwrite manual", current: OriginManual, linked: true, writer: OriginAuto, want: false},
		{name: "suggestion may not overwrite manual", current: OriginManual, linked: true, writer: OriginSuggestion, want: false},
		{name: "suggestion may not overwrite auto", current: OriginAuto, linked: true, writer: OriginSuggestion, want: false},
		{name: "auto may rewrite auto", current: OriginAuto, linked: true, writer: OriginAuto, want: true},
		{name: "manual may rewrite manual", current: OriginManual, linked: true, writer: OriginManual, want: true},
		{name: "manual may overwrite auto", current: OriginAuto, linked: true, writer: OriginManual, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{PartnerLinkOrigin: tt.current}
			if tt.linked {
				txn.PartnerID = "partner-1"
			}
			assert.Equal(t, tt.want, txn.CanSetPartner(tt.writer))
		})
	}
}

func TestCanSetCategory(t *testing.T) {
	tests := []struct {
		name    string
		current LinkOrigin
		linked  bool
		writer  LinkOrigin
		want    bool
	}{
		{name: "unlinked accepts auto", writer: OriginAuto, want: true},
		{name: "auto may not overwrite manual", current: OriginManual, linked: true, writer: OriginAuto, want: false},
		{name: "auto may rewrite auto", current: OriginAuto, linked: true, writer: OriginAuto, want: true},
		{name: "manual may overwrite auto", current: OriginAuto, linked: true, writer: OriginManual, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := Transaction{CategoryLinkOrigin: tt.current}
			if tt.linked {
				txn.NoReceiptCategoryID = "cat-1"
			}
			assert.Equal(t, tt.want, txn.CanSetCategory(tt.writer))
		})
	}
}

func TestGenerateHashIsStable(t *testing.T) {
	txn := Transaction{
		Date:         time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		AmountCents:  -2550,
		Currency:     "EUR",
		Counterparty: "Acme GmbH",
		AccountID:    "acct-1",
	}

	first := txn.GenerateHash()
	assert.Equal(t, first, txn.GenerateHash())

	other := txn
	other.AmountCents = -2551
	assert.NotEqual(t, first, other.GenerateHash())
}

func TestRejectionLookups(t *testing.T) {
	txn := Transaction{
		FileIDs:            []string{"file-1"},
		RejectedFileIDs:    []string{"file-2"},
		RejectedPartnerIDs: []string{"partner-2"},
	}

	assert.True(t, txn.HasFile("file-1"))
	assert.False(t, txn.HasFile("file-2"))
	assert.True(t, txn.IsFileRejected("file-2"))
	assert.False(t, txn.IsFileRejected("file-1"))
	assert.True(t, txn.IsPartnerRejected("partner-2"))
	assert.False(t, txn.IsPartnerRejected("partner-1"))
}
