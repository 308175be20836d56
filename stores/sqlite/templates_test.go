package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"templatecanvas/core"
	"templatecanvas/scene"
)

func TestMain(m *testing.M) {
	if !CGOEnabled {
		fmt.Println("skipping sqlite store tests: CGO disabled")
		os.Exit(0)
	}

	os.Exit(m.Run())
}

func setupTestStore(t *testing.T) core.TemplateStore {
	t.Helper()
	return NewTemplateStore(filepath.Join(t.TempDir(), "test.db"))
}

func sampleTemplate(id string) *core.Template {
	s := scene.New(800, 600)
	scene.AddLayer(s, core.LayerText, 1, core.Transform{X: 10, Y: 10, Width: 100, Height: 30, Opacity: 1})
	return &core.Template{
		ID:          id,
		Name:        "Poster " + id,
		Category:    "posters",
		SourceAsset: core.SourceAsset{Kind: "blank"},
		Scene:       s,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestNewTemplateStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store := NewTemplateStore(dbPath)
	if store == nil {
		t.Fatal("NewTemplateStore() returned nil")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("NewTemplateStore() did not create database file")
	}
}

func TestSaveAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tpl := sampleTemplate("t1")
	if err := store.Save(ctx, tpl); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != tpl.Name || got.Category != tpl.Category {
		t.Errorf("got %q/%q, want %q/%q", got.Name, got.Category, tpl.Name, tpl.Category)
	}
	if got.Scene == nil || len(got.Scene.Layers) != 1 {
		t.Fatalf("scene not round-tripped: %+v", got.Scene)
	}
}

func TestGet_NotFound(t *testing.T) {
	store := setupTestStore(t)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, core.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestSave_Upsert(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	tpl := sampleTemplate("t1")
	if err := store.Save(ctx, tpl); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	tpl.Name = "renamed"
	tpl.Compressed = true
	if err := store.Save(ctx, tpl); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := store.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if got.Name != "renamed" || !got.Compressed {
		t.Errorf("upsert lost fields: name=%q compressed=%v", got.Name, got.Compressed)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("upsert created duplicate rows: %d", len(list))
	}
}

func TestList_NewestFirst(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	older := sampleTemplate("a")
	older.UpdatedAt = time.Now().Add(-time.Hour)
	newer := sampleTemplate("b")

	if err := store.Save(ctx, older); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Save(ctx, newer); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if len(list) != 2 || list[0].ID != "b" || list[1].ID != "a" {
		ids := make([]string, 0, len(list))
		for _, m := range list {
			ids = append(ids, m.ID)
		}
		t.Fatalf("list order = %v, want [b a]", ids)
	}
	if list[0].Scene != nil {
		t.Error("list entries should not carry scene payloads")
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleTemplate("t1")); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete() failed: %v", err)
	}
	if err := store.Delete(ctx, "t1"); !errors.Is(err, core.ErrTemplateNotFound) {
		t.Fatalf("expected ErrTemplateNotFound, got %v", err)
	}
}
