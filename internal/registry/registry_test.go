package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/srmops/logibot/internal/ollama"
)

func newTestRegistry(t *testing.T, fake *ollama.Fake) *Registry {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "registry.json"), fake)
}

func record(name string, created time.Time) Record {
	return Record{Name: name, BaseModel: "llama3.2", CreatedAt: created}
}

func TestRegisterAndList(t *testing.T) {
	r := newTestRegistry(t, ollama.NewFake())
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("legacy-ai-srm-v%d", i)
		if err := r.Register(ctx, record(name, base.Add(time.Duration(i)*time.Hour)), false); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	models, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(models) != 3 {
		t.Fatalf("len(models) = %d, want 3", len(models))
	}
	// Newest first.
	if models[0].Name != "legacy-ai-srm-v2" {
		t.Errorf("models[0] = %s, want legacy-ai-srm-v2", models[0].Name)
	}
}

func TestRegisterReplacesExisting(t *testing.T) {
	r := newTestRegistry(t, ollama.NewFake())
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := r.Register(ctx, record("m1", base), false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	updated := record("m1", base.Add(time.Hour))
	updated.DatasetPath = "/data/train.jsonl"
	if err := r.Register(ctx, updated, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	models, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("len(models) = %d, want 1", len(models))
	}
	if models[0].DatasetPath != "/data/train.jsonl" {
		t.Errorf("DatasetPath = %q, want replacement record", models[0].DatasetPath)
	}
}

func TestRegisterPersistsMetadata(t *testing.T) {
	r := newTestRegistry(t, ollama.NewFake())

	rec := record("m1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	rec.Metadata = map[string]any{
		"training_method": "ollama_modelfile",
		"dataset":         "legacy_ai_complete_train_20250601_000000.jsonl",
		"smoke_failures":  0,
	}
	if err := r.Register(context.Background(), rec, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Reopen from disk to prove metadata survives the round trip.
	reopened := New(r.path, ollama.NewFake())
	got, err := reopened.Get("m1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Metadata["training_method"] != "ollama_modelfile" {
		t.Errorf("Metadata = %v, want training_method preserved", got.Metadata)
	}
	if got.Metadata["dataset"] != rec.Metadata["dataset"] {
		t.Errorf("Metadata dataset = %v, want %v", got.Metadata["dataset"], rec.Metadata["dataset"])
	}
}

func TestRegisterAndActivateIsOneWrite(t *testing.T) {
	fake := ollama.NewFake("m1")
	r := newTestRegistry(t, fake)

	if err := r.Register(context.Background(), record("m1", time.Now()), true); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// A fresh registry on the same file must see both the record and
	// the active pointer; they land in a single persisted write.
	reopened := New(r.path, fake)
	active, ok, err := reopened.Active()
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if !ok || active.Name != "m1" {
		t.Errorf("active = %v/%v, want m1 deployed with registration", active.Name, ok)
	}
}

func TestRegisterActivateUnservableModelPersistsNothing(t *testing.T) {
	fake := ollama.NewFake() // runtime serves nothing
	r := newTestRegistry(t, fake)

	err := r.Register(context.Background(), record("m1", time.Now()), true)
	if err == nil {
		t.Fatal("Register() error = nil, want runtime verification failure")
	}

	models, err := r.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(models) != 0 {
		t.Errorf("len(models) = %d, want nothing registered after failed activation", len(models))
	}
	if _, ok, _ := r.Active(); ok {
		t.Error("active pointer set after failed activation")
	}
}

func TestActiveEmptyRegistry(t *testing.T) {
	r := newTestRegistry(t, ollama.NewFake())

	_, ok, err := r.Active()
	if err != nil {
		t.Fatalf("Active() error = %v", err)
	}
	if ok {
		t.Error("Active() ok = true, want false for empty registry")
	}
}

func TestSetActiveVerifiesRuntime(t *testing.T) {
	fake := ollama.NewFake("m1")
	r := newTestRegistry(t, fake)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := r.Register(ctx, record("m1", base), false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(ctx, record("m2", base.Add(time.Hour)), false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := r.SetActive(ctx, "m1"); err != nil {
		t.Fatalf("SetActive(m1) error = %v", err)
	}
	active, ok, err := r.Active()
	if err != nil || !ok {
		t.Fatalf("Active() = %v, %v, %v", active, ok, err)
	}
	if active.Name != "m1" {
		t.Errorf("active = %s, want m1", active.Name)
	}

	// m2 is registered but the runtime cannot serve it. The failure
	// must leave the previous pointer in place.
	if err := r.SetActive(ctx, "m2"); err == nil {
		t.Error("SetActive(m2) error = nil, want runtime verification failure")
	}
	if active, ok, _ := r.Active(); !ok || active.Name != "m1" {
		t.Errorf("active = %v/%v after failed SetActive, want m1", active.Name, ok)
	}

	// Unregistered names are rejected before the runtime check.
	if err := r.SetActive(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetActive(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesFromRuntimeFirst(t *testing.T) {
	fake := ollama.NewFake("m1")
	r := newTestRegistry(t, fake)
	ctx := context.Background()

	if err := r.Register(ctx, record("m1", time.Now()), true); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := r.Delete(ctx, "m1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(fake.Deleted) != 1 || fake.Deleted[0] != "m1" {
		t.Errorf("runtime Deleted = %v, want [m1]", fake.Deleted)
	}

	models, _ := r.List()
	if len(models) != 0 {
		t.Errorf("len(models) = %d, want 0", len(models))
	}
	if _, ok, _ := r.Active(); ok {
		t.Error("active pointer survived deleting the active model")
	}
}

func TestDeleteKeepsRecordOnRuntimeFailure(t *testing.T) {
	fake := ollama.NewFake("m1")
	fake.DeleteErr = errors.New("runtime unavailable")
	r := newTestRegistry(t, fake)

	if err := r.Register(context.Background(), record("m1", time.Now()), false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := r.Delete(context.Background(), "m1"); err == nil {
		t.Fatal("Delete() error = nil, want runtime failure")
	}
	models, _ := r.List()
	if len(models) != 1 {
		t.Errorf("len(models) = %d, want record kept after failed runtime delete", len(models))
	}
}

func TestCleanupKeepsRecentAndActive(t *testing.T) {
	fake := ollama.NewFake()
	r := newTestRegistry(t, fake)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Eight versions, oldest to newest v0..v7. The active model v1 is
	// seventh-newest, well outside the keep window.
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("v%d", i)
		fake.AddModel(name)
		if err := r.Register(ctx, record(name, base.Add(time.Duration(i)*time.Hour)), false); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	if err := r.SetActive(ctx, "v1"); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}

	deleted, err := r.Cleanup(ctx, 5)
	if err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}

	// Keeps the five newest (v7..v3) plus active v1.
	models, _ := r.List()
	if len(models) != 6 {
		t.Fatalf("len(models) = %d, want 6", len(models))
	}
	kept := map[string]bool{}
	for _, m := range models {
		kept[m.Name] = true
	}
	for _, want := range []string{"v7", "v6", "v5", "v4", "v3", "v1"} {
		if !kept[want] {
			t.Errorf("expected %s to survive cleanup, kept %v", want, models)
		}
	}
	if len(deleted) != 2 {
		t.Errorf("len(deleted) = %d, want 2", len(deleted))
	}
}

func TestSummary(t *testing.T) {
	fake := ollama.NewFake("m1")
	r := newTestRegistry(t, fake)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := r.Register(ctx, record("m1", base), true); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(ctx, record("m2", base.Add(time.Hour)), false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	stats, err := r.Summary()
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if stats.TotalModels != 2 {
		t.Errorf("TotalModels = %d, want 2", stats.TotalModels)
	}
	if stats.ActiveModel != "m1" {
		t.Errorf("ActiveModel = %s, want m1", stats.ActiveModel)
	}
	if !stats.Newest.Equal(base.Add(time.Hour)) || !stats.Oldest.Equal(base) {
		t.Errorf("Newest/Oldest = %v/%v, want %v/%v", stats.Newest, stats.Oldest, base.Add(time.Hour), base)
	}
}

func TestCompare(t *testing.T) {
	r := newTestRegistry(t, ollama.NewFake())
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	recA := record("m1", base)
	recA.Metadata = map[string]any{"dataset": "train_a.jsonl"}
	recB := record("m2", base.Add(time.Hour))
	recB.Metadata = map[string]any{"dataset": "train_b.jsonl"}
	if err := r.Register(ctx, recA, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register(ctx, recB, false); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	a, b, err := r.Compare("m1", "m2")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if a.Name != "m1" || b.Name != "m2" {
		t.Errorf("Compare() = %s, %s, want m1, m2", a.Name, b.Name)
	}
	if a.Metadata["dataset"] != "train_a.jsonl" || b.Metadata["dataset"] != "train_b.jsonl" {
		t.Errorf("Compare() metadata = %v / %v, want per-model datasets", a.Metadata, b.Metadata)
	}

	if _, _, err := r.Compare("m1", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Compare(ghost) error = %v, want ErrNotFound", err)
	}
}

func TestExportWritesModelFile(t *testing.T) {
	fake := ollama.NewFake("m1")
	r := newTestRegistry(t, fake)
	ctx := context.Background()

	rec := record("m1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	rec.Metadata = map[string]any{"training_method": "ollama_modelfile"}
	if err := r.Register(ctx, rec, true); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	dir := t.TempDir()
	path, err := r.Export("m1", dir)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if path != filepath.Join(dir, "m1_export.json") {
		t.Errorf("Export() path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, want := range []string{`"name": "m1"`, `"active": true`, "ollama_modelfile"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("export missing %q: %s", want, data)
		}
	}

	if _, err := r.Export("ghost", dir); !errors.Is(err, ErrNotFound) {
		t.Errorf("Export(ghost) error = %v, want ErrNotFound", err)
	}
}
