package storage

import (
	"context"
	"sync"
	"testing"

	"todo-api/domain"
)

func TestMemoryContract(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i, id := range []string{"a", "b", "c"} {
		if err := m.InsertTask(ctx, domain.TaskDocument{ID: id, Text: id, Order: i, CreatedAt: "2024-01-01T00:00:00Z"}); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	docs, err := m.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 3 || docs[0].ID != "a" || docs[2].ID != "c" {
		t.Fatalf("unexpected retrieval order: %+v", docs)
	}

	order, done := 5, true
	if err := m.UpdateTask(ctx, "b", domain.TaskPatch{Order: &order, Completed: &done}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := m.GetTask(ctx, "b")
	if err != nil || got == nil {
		t.Fatalf("get b: %v %v", got, err)
	}
	if got.Order != 5 || !got.Completed || got.Text != "b" {
		t.Fatalf("patch not applied correctly: %+v", got)
	}

	if err := m.UpdateTask(ctx, "missing", domain.TaskPatch{Order: &order}); err != nil {
		t.Fatalf("update of absent id must be a no-op, got %v", err)
	}
	if got, _ := m.GetTask(ctx, "missing"); got != nil {
		t.Fatalf("absent id materialized: %+v", got)
	}

	n, err := m.DeleteTask(ctx, "a")
	if err != nil || n != 1 {
		t.Fatalf("delete a: n=%d err=%v", n, err)
	}
	n, err = m.DeleteTask(ctx, "a")
	if err != nil || n != 0 {
		t.Fatalf("second delete a: n=%d err=%v", n, err)
	}
	docs, _ = m.ListTasks(ctx)
	if len(docs) != 2 {
		t.Fatalf("expected 2 docs, got %d", len(docs))
	}
}

func TestMemoryListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.InsertTask(ctx, domain.TaskDocument{ID: "a", Text: "orig"})

	docs, _ := m.ListTasks(ctx)
	docs[0].Text = "changed"

	got, _ := m.GetTask(ctx, "a")
	if got.Text != "orig" {
		t.Fatalf("list leaked internal state")
	}
}

func TestMemoryConcurrentInserts(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.InsertTask(ctx, domain.TaskDocument{ID: string(rune('A' + i)), Order: i})
		}(i)
	}
	wg.Wait()

	docs, _ := m.ListTasks(ctx)
	if len(docs) != 50 {
		t.Fatalf("expected 50 docs, got %d", len(docs))
	}
}

func TestOpen(t *testing.T) {
	st, err := Open(context.Background(), Options{Backend: BackendMemory})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if err := st.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := st.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := Open(context.Background(), Options{Backend: "sqlite"}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
	if _, err := Open(context.Background(), Options{Backend: BackendTables}); err == nil {
		t.Fatalf("expected error for missing table config")
	}
	if _, err := Open(context.Background(), Options{Backend: BackendMongo}); err == nil {
		t.Fatalf("expected error for missing mongo config")
	}
}
