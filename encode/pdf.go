package encode

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"templatecanvas/core"
	"templatecanvas/scene"

	"github.com/jung-kurt/gofpdf"
	"github.com/sirupsen/logrus"
)

// Encode exports the scene as a PDF document. Per-layer failures are skipped
// and counted (see BuildOps); only a failure to construct any output at all
// is an error, in which case no partial document is returned. The context
// cancels a long-running export between layers.
func Encode(ctx context.Context, s *core.Scene) (*Result, error) {
	ops, skipped, err := BuildOps(ctx, s)
	if err != nil {
		return nil, err
	}

	doc := gofpdf.NewCustom(&gofpdf.InitType{UnitStr: "pt"})
	doc.SetAutoPageBreak(false, 0)

	pages := scene.PageNumbers(s)
	for _, pageNum := range pages {
		if err := ctx.Err(); err != nil {
			return nil, &core.EncodeError{Page: pageNum, Err: err}
		}

		geom := s.PageFor(pageNum)
		doc.AddPageFormat("P", gofpdf.SizeType{Wd: geom.WidthPt, Ht: geom.HeightPt})

		for i, op := range ops {
			if op.Page != pageNum {
				continue
			}
			if err := drawOp(doc, geom, op, fmt.Sprintf("op%d", i)); err != nil {
				logrus.WithFields(logrus.Fields{
					"page":  pageNum,
					"error": err,
				}).Warn("Layer skipped during PDF write")
				skipped++
			}
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, &core.EncodeError{Err: err}
	}

	logrus.WithFields(logrus.Fields{
		"pages":          len(pages),
		"ops":            len(ops),
		"skipped_layers": skipped,
		"bytes":          buf.Len(),
	}).Info("Scene exported")

	return &Result{
		PDF:           buf.Bytes(),
		PageCount:     len(pages),
		SkippedLayers: skipped,
	}, nil
}

// drawOp renders one operation. The op carries bottom-left point coordinates;
// the construction library addresses pages from the top-left, so positions
// flip back here. Rotation happens about the op's center in page space after
// the flip, which preserves the on-canvas rotation direction. An op that
// fails at this stage reports an error so the caller can count the skip.
func drawOp(doc *gofpdf.Fpdf, geom core.PageGeometry, op DrawOp, name string) error {
	var opErr error
	top := geom.HeightPt - op.Y - op.H

	if op.RotationDegrees != 0 {
		doc.TransformBegin()
		// The library rotates counterclockwise; canvas rotation is clockwise.
		doc.TransformRotate(-op.RotationDegrees, op.X+op.W/2, top+op.H/2)
	}
	if op.Opacity < 1 {
		doc.SetAlpha(core.ClampOpacity(op.Opacity), "Normal")
	}

	switch op.Kind {
	case OpText:
		drawText(doc, op, top)
	case OpRect:
		applyShapeStyle(doc, op)
		doc.Rect(op.X, top, op.W, op.H, shapeStyleStr(op))
	case OpEllipse:
		applyShapeStyle(doc, op)
		doc.Ellipse(op.X+op.W/2, top+op.H/2, op.W/2, op.H/2, 0, shapeStyleStr(op))
	case OpPolygon:
		applyShapeStyle(doc, op)
		pts := make([]gofpdf.PointType, len(op.Points))
		for i, p := range op.Points {
			pts[i] = gofpdf.PointType{X: p.X, Y: geom.HeightPt - p.Y}
		}
		doc.Polygon(pts, shapeStyleStr(op))
	case OpLine:
		applyShapeStyle(doc, op)
		if len(op.Points) == 2 {
			a, b := op.Points[0], op.Points[1]
			doc.Line(a.X, geom.HeightPt-a.Y, b.X, geom.HeightPt-b.Y)
		}
	case OpImage:
		var buf bytes.Buffer
		if err := png.Encode(&buf, op.Image); err != nil {
			opErr = fmt.Errorf("image re-encode: %w", err)
			break
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG"}
		doc.RegisterImageOptionsReader(name, opts, &buf)
		doc.ImageOptions(name, op.X, top, op.W, op.H, false, opts, 0, "")
	}

	if op.Opacity < 1 {
		doc.SetAlpha(1, "Normal")
	}
	if op.RotationDegrees != 0 {
		doc.TransformEnd()
	}
	return opErr
}

func drawText(doc *gofpdf.Fpdf, op DrawOp, top float64) {
	style := ""
	if op.Bold {
		style += "B"
	}
	if op.Italic {
		style += "I"
	}
	if op.Underline {
		style += "U"
	}
	doc.SetFont(coreFont(op.FontFamily), style, op.FontSizePt)
	r, g, b := op.Color.Bytes()
	doc.SetTextColor(r, g, b)
	doc.SetXY(op.X, top)

	if op.Align == core.AlignJustify {
		doc.MultiCell(op.W, op.H, op.Text, "", "J", false)
		return
	}
	doc.CellFormat(op.W, op.H, op.Text, "", 0, cellAlign(op.Align), false, 0, "")
}

func cellAlign(a core.TextAlign) string {
	switch a {
	case core.AlignCenter:
		return "CM"
	case core.AlignRight:
		return "RM"
	default:
		return "LM"
	}
}

// coreFont maps an arbitrary family name onto the construction library's
// built-in faces; embedding source fonts is outside this adapter's contract.
func coreFont(family string) string {
	f := strings.ToLower(family)
	switch {
	case strings.Contains(f, "courier"), strings.Contains(f, "mono"):
		return "Courier"
	case strings.Contains(f, "times"), strings.Contains(f, "serif"), strings.Contains(f, "georgia"):
		return "Times"
	default:
		return "Helvetica"
	}
}

func applyShapeStyle(doc *gofpdf.Fpdf, op DrawOp) {
	fr, fg, fb := op.Fill.Bytes()
	doc.SetFillColor(fr, fg, fb)
	sr, sg, sb := op.Stroke.Bytes()
	doc.SetDrawColor(sr, sg, sb)
	if op.StrokeWidth > 0 {
		doc.SetLineWidth(op.StrokeWidth)
	}
}

func shapeStyleStr(op DrawOp) string {
	if op.StrokeWidth > 0 {
		return "FD"
	}
	return "F"
}
