// Package scene implements the retained-mode layer model: an insertion-ordered
// collection of typed layers with z-ordering, visibility and lock semantics,
// plus backdrop loading and snapshot history.
package scene

import (
	"sort"

	"templatecanvas/core"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// DuplicateOffset is the pixel delta applied to a duplicated layer so the
// copy is visibly distinct from its original.
const DuplicateOffset = 20.0

// New returns an empty scene with fixed canvas dimensions.
func New(canvasWidth, canvasHeight float64) *core.Scene {
	return &core.Scene{
		CanvasWidth:  canvasWidth,
		CanvasHeight: canvasHeight,
	}
}

// AddLayer appends a new layer of the given kind on the given page, assigning
// a fresh id and a z-index one above the page's current maximum. Kind-specific
// attributes start from editor defaults.
func AddLayer(s *core.Scene, kind core.LayerKind, page int, t core.Transform) *core.Layer {
	if t.Opacity == 0 {
		t.Opacity = 1
	}
	t.Opacity = core.ClampOpacity(t.Opacity)

	layer := &core.Layer{
		ID:         ulid.Make().String(),
		PageNumber: page,
		ZIndex:     maxZ(s, page) + 1,
		Visible:    true,
		Transform:  t,
		Kind:       kind,
	}

	switch kind {
	case core.LayerText:
		layer.Text = &core.TextAttrs{
			Content:    "Text",
			FontFamily: "Helvetica",
			FontSizePx: 24,
			Weight:     core.WeightNormal,
			Style:      core.StyleNormal,
			Decoration: core.DecorationNone,
			Align:      core.AlignLeft,
		}
	case core.LayerShape:
		layer.Shape = &core.ShapeAttrs{
			Kind:        core.ShapeRectangle,
			Fill:        core.RGB{R: 0.2, G: 0.53, B: 1},
			Stroke:      core.RGB{},
			StrokeWidth: 1,
		}
	case core.LayerImage:
		layer.Image = &core.ImageAttrs{}
	case core.LayerQR:
		layer.QR = &core.QRAttrs{}
	}

	s.Layers = append(s.Layers, layer)
	logrus.WithFields(logrus.Fields{
		"layer_id": layer.ID,
		"kind":     kind,
		"page":     page,
		"z_index":  layer.ZIndex,
	}).Debug("Layer added")
	return layer
}

// Find returns the layer with the given id.
func Find(s *core.Scene, id string) (*core.Layer, error) {
	for _, l := range s.Layers {
		if l.ID == id {
			return l, nil
		}
	}
	return nil, core.ErrLayerNotFound
}

// UpdateLayer applies a patch to a layer. A locked layer accepts selection
// but rejects mutation; the layer is returned unchanged with ErrLayerLocked.
func UpdateLayer(s *core.Scene, id string, patch core.LayerPatch) (*core.Layer, error) {
	layer, err := Find(s, id)
	if err != nil {
		return nil, err
	}
	if layer.Locked {
		return nil, core.ErrLayerLocked
	}
	applyPatch(layer, patch)
	return layer, nil
}

func applyPatch(l *core.Layer, p core.LayerPatch) {
	if p.X != nil {
		l.Transform.X = *p.X
	}
	if p.Y != nil {
		l.Transform.Y = *p.Y
	}
	if p.Width != nil {
		l.Transform.Width = *p.Width
	}
	if p.Height != nil {
		l.Transform.Height = *p.Height
	}
	if p.RotationDegrees != nil {
		l.Transform.RotationDegrees = core.NormalizeRotation(*p.RotationDegrees)
	}
	if p.Opacity != nil {
		l.Transform.Opacity = core.ClampOpacity(*p.Opacity)
	}

	if t := l.Text; t != nil {
		if p.Content != nil && *p.Content != t.Content {
			if !t.Edited {
				t.OriginalText = t.Content
				t.Edited = true
			}
			t.Content = *p.Content
		}
		if p.FontFamily != nil {
			t.FontFamily = *p.FontFamily
		}
		if p.FontSizePx != nil {
			t.FontSizePx = *p.FontSizePx
		}
		if p.Color != nil {
			t.Color = *p.Color
		}
		if p.Weight != nil {
			t.Weight = *p.Weight
		}
		if p.Style != nil {
			t.Style = *p.Style
		}
		if p.Decoration != nil {
			t.Decoration = *p.Decoration
		}
		if p.Align != nil {
			t.Align = *p.Align
		}
		if p.BorderColor != nil {
			bc := *p.BorderColor
			t.BorderColor = &bc
		}
		if p.BorderWidth != nil {
			t.BorderWidth = *p.BorderWidth
		}
		if p.Shadow != nil {
			t.Shadow = *p.Shadow
		}
	}

	if sh := l.Shape; sh != nil {
		if p.Fill != nil {
			sh.Fill = *p.Fill
		}
		if p.Stroke != nil {
			sh.Stroke = *p.Stroke
		}
		if p.StrokeWidth != nil {
			sh.StrokeWidth = *p.StrokeWidth
		}
	}

	if img := l.Image; img != nil && p.SourceRef != nil {
		img.SourceRef = *p.SourceRef
	}
	if qr := l.QR; qr != nil && p.Payload != nil {
		qr.Payload = *p.Payload
	}
}

// RevertText restores a decoded text run to its source value.
func RevertText(s *core.Scene, id string) (*core.Layer, error) {
	layer, err := Find(s, id)
	if err != nil {
		return nil, err
	}
	if layer.Locked {
		return nil, core.ErrLayerLocked
	}
	if t := layer.Text; t != nil && t.Edited {
		t.Content = t.OriginalText
		t.OriginalText = ""
		t.Edited = false
	}
	return layer, nil
}

// RemoveLayer deletes a layer. The deletion is irreversible except through
// history rollback.
func RemoveLayer(s *core.Scene, id string) error {
	for i, l := range s.Layers {
		if l.ID == id {
			s.Layers = append(s.Layers[:i], s.Layers[i+1:]...)
			logrus.WithField("layer_id", id).Debug("Layer removed")
			return nil
		}
	}
	return core.ErrLayerNotFound
}

// Direction selects a reorder target relative to the layer.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Reorder swaps the layer's z-index with its nearest neighbor above or below
// on the same page. At the top or bottom boundary it is a no-op.
func Reorder(s *core.Scene, id string, dir Direction) error {
	layer, err := Find(s, id)
	if err != nil {
		return err
	}

	ordered := SortedByZ(s, layer.PageNumber)
	idx := -1
	for i, l := range ordered {
		if l.ID == id {
			idx = i
			break
		}
	}

	var neighbor *core.Layer
	switch dir {
	case Up:
		if idx < len(ordered)-1 {
			neighbor = ordered[idx+1]
		}
	case Down:
		if idx > 0 {
			neighbor = ordered[idx-1]
		}
	}
	if neighbor == nil {
		return nil
	}

	layer.ZIndex, neighbor.ZIndex = neighbor.ZIndex, layer.ZIndex
	return nil
}

// SetVisibility toggles whether the layer paints. Lock state does not apply;
// hiding is not a content mutation.
func SetVisibility(s *core.Scene, id string, visible bool) error {
	layer, err := Find(s, id)
	if err != nil {
		return err
	}
	layer.Visible = visible
	return nil
}

// SetLocked toggles the layer's mutation guard.
func SetLocked(s *core.Scene, id string, locked bool) error {
	layer, err := Find(s, id)
	if err != nil {
		return err
	}
	layer.Locked = locked
	return nil
}

// Duplicate clones a layer with a fresh id, offset by DuplicateOffset in both
// axes and placed above the original in z-order.
func Duplicate(s *core.Scene, id string) (*core.Layer, error) {
	layer, err := Find(s, id)
	if err != nil {
		return nil, err
	}

	dup := layer.Clone()
	dup.ID = ulid.Make().String()
	dup.Locked = false
	dup.Transform.X += DuplicateOffset
	dup.Transform.Y += DuplicateOffset
	dup.ZIndex = maxZ(s, layer.PageNumber) + 1
	s.Layers = append(s.Layers, dup)

	logrus.WithFields(logrus.Fields{
		"layer_id": dup.ID,
		"source":   id,
	}).Debug("Layer duplicated")
	return dup, nil
}

// SortedByZ returns the page's layers in paint order: ascending z-index,
// ties broken by insertion order. Ties only occur through corrupt or
// imported data.
func SortedByZ(s *core.Scene, page int) []*core.Layer {
	var layers []*core.Layer
	for _, l := range s.Layers {
		if l.PageNumber == page {
			layers = append(layers, l)
		}
	}
	sort.SliceStable(layers, func(i, j int) bool {
		return layers[i].ZIndex < layers[j].ZIndex
	})
	return layers
}

// PageNumbers returns the distinct pages that carry layers or backdrops, in
// ascending order; an empty scene still reports page 1.
func PageNumbers(s *core.Scene) []int {
	seen := map[int]bool{1: true}
	for _, l := range s.Layers {
		seen[l.PageNumber] = true
	}
	for _, b := range s.Backdrops {
		seen[b.PageNumber] = true
	}
	for _, p := range s.Pages {
		seen[p.Number] = true
	}
	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

func maxZ(s *core.Scene, page int) int {
	max := 0
	for _, l := range s.Layers {
		if l.PageNumber == page && l.ZIndex > max {
			max = l.ZIndex
		}
	}
	return max
}
