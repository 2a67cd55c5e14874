package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/reconflow/reconflow/internal/model"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestTransactions(count int) []model.Transaction {
	txns := make([]model.Transaction, count)
	baseDate := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		txns[i] = model.Transaction{
			ID:           fmt.Sprintf("txn-%03d", i+1),
			Date:         baseDate.AddDate(0, 0, i),
			Name:         fmt.Sprintf("Payment #%d", i+1),
			Counterparty: fmt.Sprintf("Vendor %d GmbH", (i%3)+1),
			Reference:    fmt.Sprintf("INV-2026-%03d", i+1),
			AccountID:    "acc-1",
			Currency:     "EUR",
			AmountCents:  int64(i+1) * 1050,
		}
		txns[i].Hash = txns[i].GenerateHash()
	}
	return txns
}

func createTestPartner(id, name string) *model.Partner {
	return &model.Partner{
		ID:      id,
		Type:    model.PartnerTypeUser,
		Name:    name,
		Aliases: []string{name + "*"},
		IBANs:   []string{"DE89370400440532013000"},
	}
}

func createTestFile(id, sha string) *model.File {
	return &model.File{
		ID:          id,
		SHA256:      sha,
		FileName:    "invoice.pdf",
		Extracted:   true,
		AmountCents: 4999,
		Currency:    "EUR",
		Date:        time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
	}
}
