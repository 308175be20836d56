package core

import (
	"encoding/json"
	"image"
)

type (
	LayerKind string

	FontWeight     string
	FontStyle      string
	TextDecoration string
	TextAlign      string
	ShapeKind      string
)

const (
	LayerText  LayerKind = "text"
	LayerShape LayerKind = "shape"
	LayerImage LayerKind = "image"
	LayerQR    LayerKind = "qr"

	WeightNormal FontWeight = "normal"
	WeightBold   FontWeight = "bold"

	StyleNormal FontStyle = "normal"
	StyleItalic FontStyle = "italic"

	DecorationNone      TextDecoration = "none"
	DecorationUnderline TextDecoration = "underline"

	AlignLeft    TextAlign = "left"
	AlignCenter  TextAlign = "center"
	AlignRight   TextAlign = "right"
	AlignJustify TextAlign = "justify"

	ShapeRectangle ShapeKind = "rectangle"
	ShapeCircle    ShapeKind = "circle"
	ShapeTriangle  ShapeKind = "triangle"
	ShapeStar      ShapeKind = "star"
	ShapeLine      ShapeKind = "line"
)

type (
	TextAttrs struct {
		Content      string         `json:"content"`
		FontFamily   string         `json:"fontFamily"`
		FontSizePx   float64        `json:"fontSizePx"`
		Color        RGB            `json:"color"`
		Weight       FontWeight     `json:"fontWeight"`
		Style        FontStyle      `json:"fontStyle"`
		Decoration   TextDecoration `json:"textDecoration"`
		Align        TextAlign      `json:"textAlign"`
		BorderColor  *RGB           `json:"borderColor,omitempty"`
		BorderWidth  float64        `json:"borderWidth,omitempty"`
		Shadow       bool           `json:"shadow,omitempty"`
		Edited       bool           `json:"isEdited"`
		OriginalText string         `json:"originalText,omitempty"`
	}

	ShapeAttrs struct {
		Kind        ShapeKind `json:"kind"`
		Fill        RGB       `json:"fill"`
		Stroke      RGB       `json:"stroke"`
		StrokeWidth float64   `json:"strokeWidth"`
	}

	ImageAttrs struct {
		// SourceRef is an external reference (path or URL); Data carries an
		// embedded payload when the image was uploaded inline.
		SourceRef    string `json:"sourceRef,omitempty"`
		Data         []byte `json:"data,omitempty"`
		NativeWidth  int    `json:"nativeWidth"`
		NativeHeight int    `json:"nativeHeight"`
	}

	QRAttrs struct {
		// Payload is resolved to a rendered bitmap at export time.
		Payload string `json:"payload"`
	}

	// Layer is one editable object in a Scene. Exactly one of the attr
	// groups matching Kind is non-nil.
	Layer struct {
		ID         string      `json:"id"`
		PageNumber int         `json:"pageNumber"`
		ZIndex     int         `json:"zIndex"`
		Visible    bool        `json:"visible"`
		Locked     bool        `json:"locked"`
		Transform  Transform   `json:"transform"`
		Kind       LayerKind   `json:"kind"`
		Text       *TextAttrs  `json:"text,omitempty"`
		Shape      *ShapeAttrs `json:"shape,omitempty"`
		Image      *ImageAttrs `json:"image,omitempty"`
		QR         *QRAttrs    `json:"qr,omitempty"`
	}

	// Backdrop is the non-interactive raster behind all layers of one page.
	// It is not a Layer and is excluded from export as a drawable object.
	Backdrop struct {
		PageNumber int         `json:"pageNumber"`
		Placement  Rect        `json:"placement"`
		White      bool        `json:"white"`
		Raster     image.Image `json:"-"`
	}

	// PageGeometry records a source page's native point-space dimensions,
	// needed to map canvas pixels back into document points on export.
	PageGeometry struct {
		Number   int     `json:"number"`
		WidthPt  float64 `json:"widthPt"`
		HeightPt float64 `json:"heightPt"`
	}

	// Scene is the full editable overlay for one Template: its layers in
	// insertion order plus fixed canvas dimensions and per-page backdrops.
	Scene struct {
		CanvasWidth  float64        `json:"canvasWidth"`
		CanvasHeight float64        `json:"canvasHeight"`
		Pages        []PageGeometry `json:"pages"`
		Layers       []*Layer       `json:"layers"`
		Backdrops    []*Backdrop    `json:"backdrops,omitempty"`
	}
)

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	c := *l
	if l.Text != nil {
		t := *l.Text
		if l.Text.BorderColor != nil {
			bc := *l.Text.BorderColor
			t.BorderColor = &bc
		}
		c.Text = &t
	}
	if l.Shape != nil {
		s := *l.Shape
		c.Shape = &s
	}
	if l.Image != nil {
		i := *l.Image
		if l.Image.Data != nil {
			i.Data = append([]byte(nil), l.Image.Data...)
		}
		c.Image = &i
	}
	if l.QR != nil {
		q := *l.QR
		c.QR = &q
	}
	return &c
}

// Clone returns a deep copy of the scene. Backdrop rasters are shared; they
// are immutable once loaded.
func (s *Scene) Clone() *Scene {
	c := &Scene{
		CanvasWidth:  s.CanvasWidth,
		CanvasHeight: s.CanvasHeight,
		Pages:        append([]PageGeometry(nil), s.Pages...),
		Layers:       make([]*Layer, 0, len(s.Layers)),
	}
	for _, l := range s.Layers {
		c.Layers = append(c.Layers, l.Clone())
	}
	for _, b := range s.Backdrops {
		bc := *b
		c.Backdrops = append(c.Backdrops, &bc)
	}
	return c
}

// Snapshot serializes the scene's editable state. Backdrop rasters are not
// part of the snapshot; page navigation is not an undoable edit.
func (s *Scene) Snapshot() ([]byte, error) {
	return json.Marshal(s)
}

// RestoreScene rebuilds a scene from a Snapshot payload.
func RestoreScene(data []byte) (*Scene, error) {
	var s Scene
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// BackdropFor returns the page's backdrop, or nil when none is loaded.
func (s *Scene) BackdropFor(page int) *Backdrop {
	for _, b := range s.Backdrops {
		if b.PageNumber == page {
			return b
		}
	}
	return nil
}

// SetBackdrop installs the page's backdrop, replacing any prior one.
func (s *Scene) SetBackdrop(b *Backdrop) {
	for i, old := range s.Backdrops {
		if old.PageNumber == b.PageNumber {
			s.Backdrops[i] = b
			return
		}
	}
	s.Backdrops = append(s.Backdrops, b)
}

// PageFor returns the geometry for a page number. A scene without a decoded
// source has no native point space, so the fallback maps one canvas pixel to
// one point: the whole canvas is the page and layer coordinates survive
// export unscaled and unoffset.
func (s *Scene) PageFor(number int) PageGeometry {
	for _, p := range s.Pages {
		if p.Number == number {
			return p
		}
	}
	return PageGeometry{
		Number:   number,
		WidthPt:  s.CanvasWidth,
		HeightPt: s.CanvasHeight,
	}
}
