package docstore

import (
	"context"
	"errors"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	store, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteSetAndListAll(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	docs := map[string]map[string]any{
		"d1": {"name": "Alice", "round_trip_minutes": 90.0, "haul_rate": 7.80, "status": "active"},
		"d2": {"name": "Bob", "round_trip_minutes": 45.0, "haul_rate": 6.50, "status": "inactive"},
	}
	for id, fields := range docs {
		if err := store.SetDocument(ctx, "artifacts/logibot/public/data/drivers", id, fields); err != nil {
			t.Fatalf("SetDocument(%s) failed: %v", id, err)
		}
	}

	got, err := store.ListAll(ctx, "artifacts/logibot/public/data/drivers")
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListAll returned %d documents, want 2", len(got))
	}
	if got[0].ID != "d1" || got[1].ID != "d2" {
		t.Errorf("documents out of order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].Fields["name"] != "Alice" {
		t.Errorf("Fields[name] = %v, want Alice", got[0].Fields["name"])
	}
}

func TestSQLiteSetDocumentReplaces(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()
	coll := "artifacts/logibot/public/data/plants"

	if err := store.SetDocument(ctx, coll, "p1", map[string]any{"name": "North Yard"}); err != nil {
		t.Fatalf("SetDocument failed: %v", err)
	}
	if err := store.SetDocument(ctx, coll, "p1", map[string]any{"name": "South Yard"}); err != nil {
		t.Fatalf("SetDocument replace failed: %v", err)
	}

	docs, err := store.ListAll(ctx, coll)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("ListAll returned %d documents, want 1", len(docs))
	}
	if docs[0].Fields["name"] != "South Yard" {
		t.Errorf("Fields[name] = %v, want South Yard", docs[0].Fields["name"])
	}
}

func TestSQLiteEmptyCollection(t *testing.T) {
	store := newTestSQLite(t)

	docs, err := store.ListAll(context.Background(), "artifacts/logibot/public/data/empty")
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("ListAll returned %d documents, want 0", len(docs))
	}
}

func TestMemoryFailToggle(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if err := store.SetDocument(ctx, "c", "id", map[string]any{"k": "v"}); err != nil {
		t.Fatalf("SetDocument failed: %v", err)
	}

	store.Fail = true
	if _, err := store.ListAll(ctx, "c"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("ListAll error = %v, want ErrUnavailable", err)
	}
	if err := store.SetDocument(ctx, "c", "id2", nil); !errors.Is(err, ErrUnavailable) {
		t.Errorf("SetDocument error = %v, want ErrUnavailable", err)
	}

	store.Fail = false
	docs, err := store.ListAll(ctx, "c")
	if err != nil {
		t.Fatalf("ListAll after recovery failed: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("ListAll returned %d documents, want 1", len(docs))
	}
}
