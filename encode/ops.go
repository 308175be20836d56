// Package encode converts a scene back into a paginated document. The
// conversion runs in two stages: BuildOps flattens visible layers into draw
// operations in page point space (bottom-left origin, scaled from canvas
// pixels), and the PDF writer renders those operations through the external
// construction library. The split keeps all coordinate math testable without
// a PDF in the loop.
package encode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"templatecanvas/core"
	"templatecanvas/scene"

	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
)

type OpKind string

const (
	OpText    OpKind = "text"
	OpRect    OpKind = "rect"
	OpEllipse OpKind = "ellipse"
	OpPolygon OpKind = "polygon"
	OpLine    OpKind = "line"
	OpImage   OpKind = "image"
)

// DrawOp is one drawing primitive in page point space. X and Y locate the
// lower-left corner of the op's bounding box (document origin is bottom-left;
// the canvas origin is top-left, hence the Y-flip in BuildOps). Rotation is
// clockwise degrees about the bounding box center, matching canvas rotation.
type DrawOp struct {
	Page            int
	Kind            OpKind
	X, Y, W, H      float64
	RotationDegrees float64
	Opacity         float64

	Text       string
	FontFamily string
	FontSizePt float64
	Bold       bool
	Italic     bool
	Underline  bool
	Align      core.TextAlign
	Color      core.RGB

	Fill        core.RGB
	Stroke      core.RGB
	StrokeWidth float64
	Points      []core.Point

	Image image.Image
}

// Result is a completed export.
type Result struct {
	PDF           []byte
	PageCount     int
	SkippedLayers int
}

// FlipY converts a top-left-origin vertical position into the document's
// bottom-left point space: pdfY = pageHeight - y - height.
func FlipY(pageHeightPt, y, height float64) float64 {
	return pageHeightPt - y - height
}

// BuildOps flattens the scene into draw operations: per page, visible layers
// in ascending z-order. A layer that cannot be resolved (missing image data,
// empty QR payload) is logged and skipped, never aborting the export; the
// skip count is reported alongside the ops.
func BuildOps(ctx context.Context, s *core.Scene) ([]DrawOp, int, error) {
	var ops []DrawOp
	skipped := 0

	for _, pageNum := range scene.PageNumbers(s) {
		geom := s.PageFor(pageNum)
		fit := scene.FitRect(s.CanvasWidth, s.CanvasHeight, geom.WidthPt, geom.HeightPt)
		pxPerPt := 1.0
		if geom.WidthPt > 0 {
			pxPerPt = fit.Width / geom.WidthPt
		}

		for _, layer := range scene.SortedByZ(s, pageNum) {
			if err := ctx.Err(); err != nil {
				return nil, 0, &core.EncodeError{Page: pageNum, Err: err}
			}
			if !layer.Visible {
				continue
			}

			op, err := layerOp(layer, geom, fit, pxPerPt)
			if err != nil {
				skipped++
				logrus.WithFields(logrus.Fields{
					"layer_id": layer.ID,
					"kind":     layer.Kind,
					"page":     pageNum,
					"error":    err,
				}).Warn("Layer skipped during export")
				continue
			}
			ops = append(ops, op)
		}
	}
	return ops, skipped, nil
}

func layerOp(l *core.Layer, geom core.PageGeometry, fit core.Rect, pxPerPt float64) (DrawOp, error) {
	t := l.Transform
	w := t.Width / pxPerPt
	h := t.Height / pxPerPt
	x := (t.X - fit.X) / pxPerPt
	y := FlipY(geom.HeightPt, (t.Y-fit.Y)/pxPerPt, h)

	op := DrawOp{
		Page:            l.PageNumber,
		X:               x,
		Y:               y,
		W:               w,
		H:               h,
		RotationDegrees: t.RotationDegrees,
		Opacity:         t.Opacity,
	}

	// Converts a single canvas point into page point space.
	pt := func(cx, cy float64) core.Point {
		return core.Point{
			X: (cx - fit.X) / pxPerPt,
			Y: geom.HeightPt - (cy-fit.Y)/pxPerPt,
		}
	}

	switch l.Kind {
	case core.LayerText:
		if l.Text == nil {
			return op, fmt.Errorf("text layer without text attributes")
		}
		op.Kind = OpText
		op.Text = l.Text.Content
		op.FontFamily = l.Text.FontFamily
		op.FontSizePt = l.Text.FontSizePx / pxPerPt
		op.Bold = l.Text.Weight == core.WeightBold
		op.Italic = l.Text.Style == core.StyleItalic
		op.Underline = l.Text.Decoration == core.DecorationUnderline
		op.Align = l.Text.Align
		op.Color = l.Text.Color

	case core.LayerShape:
		if l.Shape == nil {
			return op, fmt.Errorf("shape layer without shape attributes")
		}
		op.Fill = l.Shape.Fill
		op.Stroke = l.Shape.Stroke
		op.StrokeWidth = l.Shape.StrokeWidth / pxPerPt
		switch l.Shape.Kind {
		case core.ShapeRectangle:
			op.Kind = OpRect
		case core.ShapeCircle:
			op.Kind = OpEllipse
		case core.ShapeLine:
			op.Kind = OpLine
			mid := t.Y + t.Height/2
			op.Points = []core.Point{pt(t.X, mid), pt(t.X+t.Width, mid)}
		case core.ShapeTriangle:
			op.Kind = OpPolygon
			op.Points = []core.Point{
				pt(t.X+t.Width/2, t.Y),
				pt(t.X+t.Width, t.Y+t.Height),
				pt(t.X, t.Y+t.Height),
			}
		case core.ShapeStar:
			op.Kind = OpPolygon
			op.Points = starPoints(t, pt)
		default:
			return op, fmt.Errorf("unknown shape kind %q", l.Shape.Kind)
		}

	case core.LayerImage:
		if l.Image == nil {
			return op, fmt.Errorf("image layer without image attributes")
		}
		img, err := resolveImage(l.Image)
		if err != nil {
			return op, err
		}
		op.Kind = OpImage
		op.Image = img

	case core.LayerQR:
		if l.QR == nil || l.QR.Payload == "" {
			return op, fmt.Errorf("qr layer without payload")
		}
		img, err := qrBitmap(l.QR.Payload, int(math.Max(t.Width, 64)))
		if err != nil {
			return op, err
		}
		op.Kind = OpImage
		op.Image = img

	default:
		return op, fmt.Errorf("unknown layer kind %q", l.Kind)
	}
	return op, nil
}

// starPoints builds a five-pointed star inscribed in the layer's bounds,
// alternating outer and inner vertices around the center.
func starPoints(t core.Transform, pt func(x, y float64) core.Point) []core.Point {
	cx := t.X + t.Width/2
	cy := t.Y + t.Height/2
	outer := math.Min(t.Width, t.Height) / 2
	inner := outer * 0.4

	points := make([]core.Point, 0, 10)
	for i := 0; i < 10; i++ {
		r := outer
		if i%2 == 1 {
			r = inner
		}
		angle := float64(i)*math.Pi/5 - math.Pi/2
		points = append(points, pt(cx+r*math.Cos(angle), cy+r*math.Sin(angle)))
	}
	return points
}

func resolveImage(attrs *core.ImageAttrs) (image.Image, error) {
	var data []byte
	switch {
	case len(attrs.Data) > 0:
		data = attrs.Data
	case attrs.SourceRef != "":
		b, err := os.ReadFile(attrs.SourceRef)
		if err != nil {
			return nil, fmt.Errorf("image source unreachable: %w", err)
		}
		data = b
	default:
		return nil, fmt.Errorf("image layer has no source")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("image undecodable: %w", err)
	}
	return img, nil
}

// qrBitmap renders a QR payload through the external QR collaborator; the
// editor only ever held the payload reference until this point.
func qrBitmap(payload string, sizePx int) (image.Image, error) {
	qr, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr payload unrenderable: %w", err)
	}
	return qr.Image(sizePx), nil
}
