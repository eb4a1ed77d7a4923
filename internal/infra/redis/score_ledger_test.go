package redis

import (
	"context"
	"sync"
	"testing"
)

func TestScoreLedgerAdjustAndGet(t *testing.T) {
	mr := startMiniredis(t)
	ledger := NewScoreLedger(newClient(mr))
	ctx := context.Background()

	if score, err := ledger.Get(ctx, 1); err != nil || score != 0 {
		t.Fatalf("expected default 0, got %d err=%v", score, err)
	}
	if score, _ := ledger.Adjust(ctx, 1, -1); score != -1 {
		t.Fatalf("expected -1, got %d", score)
	}
	if score, _ := ledger.Adjust(ctx, 1, 4); score != 3 {
		t.Fatalf("expected 3, got %d", score)
	}
	if !mr.Exists("quiz:score:1") {
		t.Fatalf("expected score key to be set")
	}
}

func TestScoreLedgerConcurrentAdjust(t *testing.T) {
	mr := startMiniredis(t)
	ledger := NewScoreLedger(newClient(mr))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); _, _ = ledger.Adjust(ctx, 9, 4) }()
		go func() { defer wg.Done(); _, _ = ledger.Adjust(ctx, 9, -1) }()
	}
	wg.Wait()

	if score, _ := ledger.Get(ctx, 9); score != 40*3 {
		t.Fatalf("expected %d, got %d", 40*3, score)
	}
}
