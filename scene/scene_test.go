package scene

import (
	"errors"
	"testing"

	"templatecanvas/core"
)

func TestAddLayer_AssignsIDAndZ(t *testing.T) {
	s := New(800, 600)

	first := AddLayer(s, core.LayerText, 1, core.Transform{X: 10, Y: 10, Width: 100, Height: 40})
	second := AddLayer(s, core.LayerShape, 1, core.Transform{X: 20, Y: 20, Width: 50, Height: 50})

	if first.ID == "" || second.ID == "" {
		t.Fatal("expected non-empty layer ids")
	}
	if first.ID == second.ID {
		t.Fatalf("expected distinct ids, got %q twice", first.ID)
	}
	if first.ZIndex != 1 || second.ZIndex != 2 {
		t.Errorf("expected z-indices 1 and 2, got %d and %d", first.ZIndex, second.ZIndex)
	}
	if !first.Visible || !second.Visible {
		t.Error("new layers should be visible")
	}
	if first.Transform.Opacity != 1 {
		t.Errorf("expected default opacity 1, got %v", first.Transform.Opacity)
	}
}

func TestAddLayer_KindDefaults(t *testing.T) {
	s := New(800, 600)

	text := AddLayer(s, core.LayerText, 1, core.Transform{})
	if text.Text == nil {
		t.Fatal("text layer missing text attributes")
	}
	if text.Text.Content != "Text" || text.Text.FontFamily != "Helvetica" || text.Text.FontSizePx != 24 {
		t.Errorf("unexpected text defaults: %+v", text.Text)
	}

	shape := AddLayer(s, core.LayerShape, 1, core.Transform{})
	if shape.Shape == nil {
		t.Fatal("shape layer missing shape attributes")
	}
	if shape.Shape.Kind != core.ShapeRectangle {
		t.Errorf("expected rectangle default, got %q", shape.Shape.Kind)
	}
}

func TestUpdateLayer_Patch(t *testing.T) {
	s := New(800, 600)
	layer := AddLayer(s, core.LayerText, 1, core.Transform{X: 10, Y: 10, Width: 100, Height: 40, Opacity: 1})

	x, content := 55.0, "Hello"
	got, err := UpdateLayer(s, layer.ID, core.LayerPatch{X: &x, Content: &content})
	if err != nil {
		t.Fatalf("UpdateLayer() failed: %v", err)
	}
	if got.Transform.X != 55 {
		t.Errorf("expected x 55, got %v", got.Transform.X)
	}
	if got.Text.Content != "Hello" {
		t.Errorf("expected content %q, got %q", "Hello", got.Text.Content)
	}
	if !got.Text.Edited || got.Text.OriginalText != "Text" {
		t.Errorf("expected edit provenance, got edited=%v original=%q", got.Text.Edited, got.Text.OriginalText)
	}
}

func TestUpdateLayer_Locked(t *testing.T) {
	s := New(800, 600)
	layer := AddLayer(s, core.LayerText, 1, core.Transform{X: 10, Y: 10})
	if err := SetLocked(s, layer.ID, true); err != nil {
		t.Fatalf("SetLocked() failed: %v", err)
	}

	x := 99.0
	if _, err := UpdateLayer(s, layer.ID, core.LayerPatch{X: &x}); !errors.Is(err, core.ErrLayerLocked) {
		t.Fatalf("expected ErrLayerLocked, got %v", err)
	}
	if layer.Transform.X != 10 {
		t.Errorf("locked layer mutated: x = %v", layer.Transform.X)
	}

	// Unlock and retry.
	if err := SetLocked(s, layer.ID, false); err != nil {
		t.Fatalf("SetLocked() failed: %v", err)
	}
	if _, err := UpdateLayer(s, layer.ID, core.LayerPatch{X: &x}); err != nil {
		t.Fatalf("UpdateLayer() after unlock failed: %v", err)
	}
	if layer.Transform.X != 99 {
		t.Errorf("expected x 99 after unlock, got %v", layer.Transform.X)
	}
}

func TestUpdateLayer_NotFound(t *testing.T) {
	s := New(800, 600)
	if _, err := UpdateLayer(s, "nope", core.LayerPatch{}); !errors.Is(err, core.ErrLayerNotFound) {
		t.Fatalf("expected ErrLayerNotFound, got %v", err)
	}
}

func TestSetVisibility_IgnoresLock(t *testing.T) {
	s := New(800, 600)
	layer := AddLayer(s, core.LayerShape, 1, core.Transform{})
	if err := SetLocked(s, layer.ID, true); err != nil {
		t.Fatalf("SetLocked() failed: %v", err)
	}
	if err := SetVisibility(s, layer.ID, false); err != nil {
		t.Fatalf("SetVisibility() on locked layer failed: %v", err)
	}
	if layer.Visible {
		t.Error("expected layer hidden")
	}
}

func TestRevertText(t *testing.T) {
	s := New(800, 600)
	layer := AddLayer(s, core.LayerText, 1, core.Transform{})

	content := "edited"
	if _, err := UpdateLayer(s, layer.ID, core.LayerPatch{Content: &content}); err != nil {
		t.Fatalf("UpdateLayer() failed: %v", err)
	}
	got, err := RevertText(s, layer.ID)
	if err != nil {
		t.Fatalf("RevertText() failed: %v", err)
	}
	if got.Text.Content != "Text" || got.Text.Edited {
		t.Errorf("expected original content restored, got %+v", got.Text)
	}

	// Reverting an unedited layer is a no-op.
	if _, err := RevertText(s, layer.ID); err != nil {
		t.Fatalf("RevertText() on unedited layer failed: %v", err)
	}
}

func TestRemoveLayer(t *testing.T) {
	s := New(800, 600)
	layer := AddLayer(s, core.LayerShape, 1, core.Transform{})

	if err := RemoveLayer(s, layer.ID); err != nil {
		t.Fatalf("RemoveLayer() failed: %v", err)
	}
	if len(s.Layers) != 0 {
		t.Fatalf("expected empty scene, got %d layers", len(s.Layers))
	}
	if err := RemoveLayer(s, layer.ID); !errors.Is(err, core.ErrLayerNotFound) {
		t.Fatalf("expected ErrLayerNotFound, got %v", err)
	}
}

func TestReorder_SwapsNeighbors(t *testing.T) {
	s := New(800, 600)
	a := AddLayer(s, core.LayerShape, 1, core.Transform{})
	b := AddLayer(s, core.LayerShape, 1, core.Transform{})
	c := AddLayer(s, core.LayerShape, 1, core.Transform{})

	if err := Reorder(s, a.ID, Up); err != nil {
		t.Fatalf("Reorder() failed: %v", err)
	}
	wantOrder := []string{b.ID, a.ID, c.ID}
	gotOrder := orderIDs(s, 1)
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("paint order after up = %v, want %v", gotOrder, wantOrder)
		}
	}

	if err := Reorder(s, a.ID, Down); err != nil {
		t.Fatalf("Reorder() failed: %v", err)
	}
	wantOrder = []string{a.ID, b.ID, c.ID}
	gotOrder = orderIDs(s, 1)
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("paint order after down = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestReorder_BoundaryNoOp(t *testing.T) {
	s := New(800, 600)
	a := AddLayer(s, core.LayerShape, 1, core.Transform{})
	b := AddLayer(s, core.LayerShape, 1, core.Transform{})

	if err := Reorder(s, b.ID, Up); err != nil {
		t.Fatalf("Reorder() at top failed: %v", err)
	}
	if err := Reorder(s, a.ID, Down); err != nil {
		t.Fatalf("Reorder() at bottom failed: %v", err)
	}
	got := orderIDs(s, 1)
	if got[0] != a.ID || got[1] != b.ID {
		t.Errorf("boundary reorder changed order: %v", got)
	}
}

func TestReorder_OnlyAffectsSwappedPair(t *testing.T) {
	s := New(800, 600)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, AddLayer(s, core.LayerShape, 1, core.Transform{}).ID)
	}

	// Moving the middle layer up must leave every other relative pair intact.
	if err := Reorder(s, ids[2], Up); err != nil {
		t.Fatalf("Reorder() failed: %v", err)
	}
	want := []string{ids[0], ids[1], ids[3], ids[2], ids[4]}
	got := orderIDs(s, 1)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("paint order = %v, want %v", got, want)
		}
	}
}

func TestDuplicate(t *testing.T) {
	s := New(800, 600)
	layer := AddLayer(s, core.LayerText, 1, core.Transform{X: 100, Y: 100, Width: 200, Height: 50, Opacity: 1})
	content := "Hello"
	if _, err := UpdateLayer(s, layer.ID, core.LayerPatch{Content: &content}); err != nil {
		t.Fatalf("UpdateLayer() failed: %v", err)
	}
	if err := SetLocked(s, layer.ID, true); err != nil {
		t.Fatalf("SetLocked() failed: %v", err)
	}

	dup, err := Duplicate(s, layer.ID)
	if err != nil {
		t.Fatalf("Duplicate() failed: %v", err)
	}
	if dup.ID == layer.ID {
		t.Fatal("duplicate shares id with original")
	}
	if dup.Transform.X != 120 || dup.Transform.Y != 120 {
		t.Errorf("expected offset position (120, 120), got (%v, %v)", dup.Transform.X, dup.Transform.Y)
	}
	if dup.ZIndex <= layer.ZIndex {
		t.Errorf("duplicate z %d not above original %d", dup.ZIndex, layer.ZIndex)
	}
	if dup.Locked {
		t.Error("duplicate should start unlocked")
	}
	if dup.Text.Content != "Hello" {
		t.Errorf("duplicate lost content: %q", dup.Text.Content)
	}

	// Attribute copies must not alias the original.
	dup.Text.Content = "changed"
	if layer.Text.Content != "Hello" {
		t.Error("duplicate attributes alias the original layer")
	}
}

func TestSortedByZ_StableTieBreak(t *testing.T) {
	s := New(800, 600)
	a := AddLayer(s, core.LayerShape, 1, core.Transform{})
	b := AddLayer(s, core.LayerShape, 1, core.Transform{})
	// Force a tie, as imported data can carry.
	b.ZIndex = a.ZIndex

	ordered := SortedByZ(s, 1)
	if ordered[0].ID != a.ID || ordered[1].ID != b.ID {
		t.Errorf("tied z-indices must keep insertion order, got %v", orderIDs(s, 1))
	}
}

func TestPageNumbers(t *testing.T) {
	s := New(800, 600)
	if got := PageNumbers(s); len(got) != 1 || got[0] != 1 {
		t.Fatalf("empty scene pages = %v, want [1]", got)
	}

	AddLayer(s, core.LayerShape, 3, core.Transform{})
	s.Pages = append(s.Pages, core.PageGeometry{Number: 2, WidthPt: 612, HeightPt: 792})
	got := PageNumbers(s)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("pages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pages = %v, want %v", got, want)
		}
	}
}

func orderIDs(s *core.Scene, page int) []string {
	var ids []string
	for _, l := range SortedByZ(s, page) {
		ids = append(ids, l.ID)
	}
	return ids
}
