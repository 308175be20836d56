// Package decode wraps the external paged-document libraries behind a narrow
// contract: a source file in, per-page background rasters plus positioned
// text runs out. Coordinates stay in the decoder's native point space with a
// bottom-left origin; conversion to canvas pixels is scene ingestion's job.
package decode

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

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
)

var pdfMagic = []byte("%PDF-")

// Letter-size fallback for pages whose MediaBox is missing or inherited.
const (
	defaultPageWidthPt  = 612
	defaultPageHeightPt = 792
)

// File decodes a source asset from disk. PDF sources produce one page per
// document page; raster images produce a single synthetic page.
func File(ctx context.Context, path string) ([]core.DecodedPage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.DecodeError{Source: path, Err: err}
	}
	return Bytes(ctx, data, path)
}

// Bytes decodes an in-memory source asset, sniffing PDF versus image.
func Bytes(ctx context.Context, data []byte, name string) ([]core.DecodedPage, error) {
	if len(data) == 0 {
		return nil, &core.DecodeError{Source: name, Err: fmt.Errorf("empty source")}
	}
	if bytes.HasPrefix(data, pdfMagic) {
		return decodePDF(ctx, data, name)
	}
	return decodeImage(data, name)
}

func decodeImage(data []byte, name string) ([]core.DecodedPage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &core.DecodeError{Source: name, Err: fmt.Errorf("unsupported source: %w", err)}
	}
	bounds := img.Bounds()
	logrus.WithFields(logrus.Fields{
		"source": name,
		"format": format,
		"width":  bounds.Dx(),
		"height": bounds.Dy(),
	}).Info("Image source decoded")

	return []core.DecodedPage{{
		PageNumber: 1,
		// An image page's point space matches its pixel grid at 72 DPI.
		WidthPt:  float64(bounds.Dx()),
		HeightPt: float64(bounds.Dy()),
		Raster:   img,
	}}, nil
}

func decodePDF(ctx context.Context, data []byte, name string) (pages []core.DecodedPage, err error) {
	// The pdf library panics on some malformed inputs; fold those into the
	// typed decode failure instead of crashing the editor.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = &core.DecodeError{Source: name, Err: fmt.Errorf("malformed pdf: %v", r)}
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &core.DecodeError{Source: name, Err: err}
	}

	total := reader.NumPage()
	if total == 0 {
		return nil, &core.DecodeError{Source: name, Err: fmt.Errorf("document has no pages")}
	}

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, &core.DecodeError{Source: name, Err: err}
		}

		log := logrus.WithFields(logrus.Fields{"source": name, "page": i})
		page := reader.Page(i)
		if page.V.IsNull() {
			log.Warn("Skipping null page")
			continue
		}

		widthPt, heightPt := mediaBox(page)
		runs := extractRuns(page, log)

		pages = append(pages, core.DecodedPage{
			PageNumber: i,
			WidthPt:    widthPt,
			HeightPt:   heightPt,
			// No rasterizer is wired in; PDF pages start from a white
			// backdrop sized one pixel per point.
			Raster:   whiteRaster(widthPt, heightPt),
			TextRuns: runs,
		})
		log.WithField("text_runs", len(runs)).Debug("Page decoded")
	}

	if len(pages) == 0 {
		return nil, &core.DecodeError{Source: name, Err: fmt.Errorf("no decodable pages")}
	}
	return pages, nil
}

func mediaBox(page pdf.Page) (w, h float64) {
	box := page.V.Key("MediaBox")
	if box.Kind() != pdf.Array || box.Len() != 4 {
		return defaultPageWidthPt, defaultPageHeightPt
	}
	x1, y1 := box.Index(0).Float64(), box.Index(1).Float64()
	x2, y2 := box.Index(2).Float64(), box.Index(3).Float64()
	w, h = math.Abs(x2-x1), math.Abs(y2-y1)
	if w == 0 || h == 0 {
		return defaultPageWidthPt, defaultPageHeightPt
	}
	return w, h
}

// extractRuns groups the page's per-fragment text items into runs: fragments
// on the same baseline with the same font merge when horizontally adjacent.
func extractRuns(page pdf.Page, log *logrus.Entry) []core.TextRun {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("error", r).Warn("Text extraction failed for page")
		}
	}()

	content := page.Content()
	var runs []core.TextRun
	var cur *core.TextRun

	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		adjacent := cur != nil &&
			cur.FontName == t.Font &&
			cur.FontSizePt == t.FontSize &&
			math.Abs(cur.OriginY-t.Y) < 0.5 &&
			math.Abs(cur.OriginX+cur.Width-t.X) <= t.FontSize
		if adjacent {
			cur.Text += t.S
			cur.Width = t.X + t.W - cur.OriginX
			continue
		}
		runs = append(runs, core.TextRun{
			Text:       t.S,
			OriginX:    t.X,
			OriginY:    t.Y,
			Width:      t.W,
			Height:     t.FontSize,
			FontName:   t.Font,
			FontSizePt: t.FontSize,
		})
		cur = &runs[len(runs)-1]
	}
	return runs
}

func whiteRaster(widthPt, heightPt float64) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, int(widthPt), int(heightPt)))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	return img
}
