package storage

import (
	"context"
	"path/filepath"
	"testing"

	"tradeEngine/internal/model"
)

func TestJsonlJournalAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "swaps.jsonl")
	journal := NewJsonlJournal(path)

	empty, err := journal.ReadSwaps()
	if err != nil {
		t.Fatalf("read missing journal: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty journal, got %d records", len(empty))
	}

	records := []model.SwapRecord{
		{TransactionID: "0x01", TokenIn: "ETH", TokenOut: "USDC", AmountIn: "1", MinimumReceived: "2985000000"},
		{TransactionID: "0x02", TokenIn: "USDC", TokenOut: "WLD", AmountIn: "10", MinimumReceived: "9"},
	}
	for _, record := range records {
		if err := journal.AppendSwap(context.Background(), record); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := journal.ReadSwaps()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 || got[0] != records[0] || got[1] != records[1] {
		t.Fatalf("unexpected records %+v", got)
	}
}
