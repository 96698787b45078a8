//go:build integration

package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/testutil"
)

func TestPostgresStore_Lifecycle(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db.Pool, log.NewNop())

	c, err := store.Create(ctx, "alice", "Backpack hunt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Backpack hunt" || got.UserID != "alice" {
		t.Errorf("Get = %+v", got)
	}

	if err := store.Append(ctx, c.ID, []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("show the backpack")),
		{Role: ai.RoleModel, Content: []*ai.Part{{
			Kind:        ai.PartToolRequest,
			ToolRequest: &ai.ToolRequest{Name: "product_details", Ref: "call-1", Input: map[string]any{"product_id": 1}},
		}}},
		{Role: ai.RoleTool, Content: []*ai.Part{{
			Kind:         ai.PartToolResponse,
			ToolResponse: &ai.ToolResponse{Name: "product_details", Ref: "call-1", Output: "details"},
		}}},
		ai.NewModelMessage(ai.NewTextPart("Here it is.")),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	msgs, err := store.Messages(ctx, c.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("len = %d, want 4", len(msgs))
	}
	for i, m := range msgs {
		if m.Seq != int64(i)+1 {
			t.Errorf("msgs[%d].Seq = %d, want %d", i, m.Seq, i+1)
		}
	}

	// Tool linkage must survive the JSONB round trip.
	history, err := store.History(ctx, c.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if history[1].Content[0].ToolRequest == nil ||
		history[1].Content[0].ToolRequest.Ref != "call-1" {
		t.Error("tool request ref lost in round trip")
	}
	if history[2].Content[0].ToolResponse == nil ||
		history[2].Content[0].ToolResponse.Ref != "call-1" {
		t.Error("tool response ref lost in round trip")
	}

	if err := store.Delete(ctx, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_ListOrdering(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db.Pool, log.NewNop())

	first, _ := store.Create(ctx, "alice", "first")
	second, _ := store.Create(ctx, "alice", "second")
	if _, err := store.Create(ctx, "bob", "other"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := store.Append(ctx, first.ID, []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("hi")),
	}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	list, err := store.List(ctx, "alice", 10, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].ID != first.ID || list[1].ID != second.ID {
		t.Error("appended conversation should sort first")
	}
}

func TestPostgresStore_AppendMissing(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := NewPostgresStore(db.Pool, log.NewNop())
	err := store.Append(context.Background(), uuid.New(), []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart("hi")),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_ConcurrentAppendsKeepSequenceDense(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewPostgresStore(db.Pool, log.NewNop())
	c, err := store.Create(ctx, "alice", "race")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	const writers = 10
	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Append(ctx, c.ID, []*ai.Message{
				ai.NewUserMessage(ai.NewTextPart("m")),
			}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	msgs, err := store.Messages(ctx, c.ID)
	if err != nil {
		t.Fatalf("Messages: %v", err)
	}
	if len(msgs) != writers {
		t.Fatalf("len = %d, want %d", len(msgs), writers)
	}
	for i, m := range msgs {
		if m.Seq != int64(i)+1 {
			t.Errorf("msgs[%d].Seq = %d, want %d", i, m.Seq, i+1)
		}
	}
}
