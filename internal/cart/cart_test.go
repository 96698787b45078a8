package cart

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStore_UpsertIncrements(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Upsert(ctx, "alice", Line{ProductID: 1, Title: "Backpack", Price: 109.95, Quantity: 2}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}
	if err := store.Upsert(ctx, "alice", Line{ProductID: 1, Title: "Backpack", Price: 109.95, Quantity: 3}); err != nil {
		t.Fatalf("Upsert() error: %v", err)
	}

	lines, err := store.Lines(ctx, "alice")
	if err != nil {
		t.Fatalf("Lines() error: %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("Lines() len = %d, want 1", len(lines))
	}
	if lines[0].Quantity != 5 {
		t.Errorf("quantity = %d, want 5", lines[0].Quantity)
	}
}

func TestMemoryStore_UsersIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Upsert(ctx, "alice", Line{ProductID: 1, Quantity: 1})
	store.Upsert(ctx, "bob", Line{ProductID: 2, Quantity: 1})

	aliceLines, _ := store.Lines(ctx, "alice")
	bobLines, _ := store.Lines(ctx, "bob")

	if len(aliceLines) != 1 || aliceLines[0].ProductID != 1 {
		t.Errorf("alice's cart: %+v", aliceLines)
	}
	if len(bobLines) != 1 || bobLines[0].ProductID != 2 {
		t.Errorf("bob's cart: %+v", bobLines)
	}
}

func TestMemoryStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Upsert(ctx, "alice", Line{ProductID: 1, Quantity: 1})
	store.Upsert(ctx, "alice", Line{ProductID: 2, Quantity: 1})

	removed, err := store.Remove(ctx, "alice", 1)
	if err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if !removed {
		t.Error("Remove() = false, want true")
	}

	lines, _ := store.Lines(ctx, "alice")
	if len(lines) != 1 || lines[0].ProductID != 2 {
		t.Errorf("cart after remove: %+v", lines)
	}
}

func TestMemoryStore_RemoveMissing(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Upsert(ctx, "alice", Line{ProductID: 1, Quantity: 1})

	removed, err := store.Remove(ctx, "alice", 42)
	if err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if removed {
		t.Error("Remove() = true for missing product, want false")
	}

	// Cart unchanged
	lines, _ := store.Lines(ctx, "alice")
	if len(lines) != 1 || lines[0].ProductID != 1 {
		t.Errorf("cart changed by failed remove: %+v", lines)
	}
}

func TestMemoryStore_LinesReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	store.Upsert(ctx, "alice", Line{ProductID: 1, Quantity: 1})

	lines, _ := store.Lines(ctx, "alice")
	lines[0].Quantity = 99

	again, _ := store.Lines(ctx, "alice")
	if again[0].Quantity != 1 {
		t.Error("Lines() exposed internal state")
	}
}

func TestMemoryStore_ConcurrentUpserts(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	const workers = 50
	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			store.Upsert(ctx, "alice", Line{ProductID: 1, Quantity: 1})
		}()
	}
	wg.Wait()

	lines, _ := store.Lines(ctx, "alice")
	if len(lines) != 1 {
		t.Fatalf("Lines() len = %d, want 1", len(lines))
	}
	if lines[0].Quantity != workers {
		t.Errorf("quantity = %d, want %d", lines[0].Quantity, workers)
	}
}

func TestLine_Subtotal(t *testing.T) {
	l := Line{Price: 22.3, Quantity: 3}
	if got := l.Subtotal(); got != 66.9 {
		t.Errorf("Subtotal() = %v, want 66.9", got)
	}
}
